// Package coordinator implements the pool membership service: worker
// registration, membership snapshots for drivers, and liveness
// monitoring. See doc.go for complete package documentation.
package coordinator

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/rowmesh/internal/cluster"
)

// Registry tracks the workers currently registered with the coordinator.
// It is the source of the membership snapshots drivers rank workers from;
// the registry itself never assigns ranks, since ranks are a per-call
// derivation from a snapshot, not coordinator state.
//
// Thread-safe: all methods may be called concurrently.
type Registry struct {
	mu      sync.RWMutex
	workers []cluster.WorkerInfo
}

// NewRegistry creates an empty worker registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a worker or, if the ID is already known, updates its
// address. Registration is idempotent so workers can re-announce after a
// restart.
func (r *Registry) Register(w cluster.WorkerInfo) error {
	if w.ID == "" || w.Addr == "" {
		return errors.New("worker ID and address are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := slices.IndexFunc(r.workers, func(have cluster.WorkerInfo) bool { return have.ID == w.ID })
	if idx >= 0 {
		r.workers[idx] = w
	} else {
		r.workers = append(r.workers, w)
	}
	return nil
}

// Remove drops a worker by ID. No error if the worker is unknown.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = slices.DeleteFunc(r.workers, func(w cluster.WorkerInfo) bool { return w.ID == id })
}

// Snapshot returns a copy of the current membership in registration
// order. Drivers sort the addresses to derive ranks.
func (r *Registry) Snapshot() []cluster.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]cluster.WorkerInfo(nil), r.workers...)
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
