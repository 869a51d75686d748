package worker

import (
	"errors"
	"sync"

	"github.com/dreamware/rowmesh/internal/frame"
)

// ErrFrameNotFound is returned when a partition key doesn't exist in the store
var ErrFrameNotFound = errors.New("frame not found")

// Store holds the partitions resident on one worker, keyed by string.
// Frames are treated as immutable once stored: Put transfers ownership to
// the store and Get hands the frame back by reference. Exclusive ownership
// of partition data by a single worker is the engine's concurrency model,
// so no copies are made here.
type Store struct {
	mu   sync.RWMutex
	data map[string]*frame.Frame
}

// NewStore creates an empty partition store
func NewStore() *Store {
	return &Store{data: make(map[string]*frame.Frame)}
}

// Get retrieves a partition by key
// Returns ErrFrameNotFound if the key doesn't exist
func (s *Store) Get(key string) (*frame.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[key]
	if !exists {
		return nil, ErrFrameNotFound
	}
	return f, nil
}

// Put stores a partition under the given key, overwriting any existing one
func (s *Store) Put(key string, f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = f
}

// Delete removes a partition
// No error if key doesn't exist (idempotent)
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Take removes and returns a partition, transferring ownership to the
// caller. Source partitions are consumed this way once their buckets are
// produced.
func (s *Store) Take(key string) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.data[key]
	if !exists {
		return nil, ErrFrameNotFound
	}
	delete(s.data, key)
	return f, nil
}

// List returns all partition keys in the store
// Order is not guaranteed
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Frames int `json:"frames"` // Number of partitions held
	Rows   int `json:"rows"`   // Total row count across partitions
	Bytes  int `json:"bytes"`  // Approximate payload size in bytes
}

// Stats returns storage statistics
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{Frames: len(s.data)}
	for _, f := range s.data {
		stats.Rows += f.NumRows()
		stats.Bytes += f.NumBytes()
	}
	return stats
}
