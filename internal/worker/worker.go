package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/frame"
)

// OpFunc is a unit of work executed on a worker by a collective call. It
// receives the worker it runs on (store, inbox, peers are reached through
// it) and the typed per-call state. The returned value is marshaled to
// JSON and collected by the caller; a returned error fails the whole
// collective call.
type OpFunc func(ctx context.Context, w *Worker, state *cluster.CallState) (any, error)

// OpsStats tracks operation counts for a worker
type OpsStats struct {
	Execs     uint64 `json:"execs"`      // Collective-call ops executed
	BucketsIn uint64 `json:"buckets_in"` // Shuffle buckets received
	Acquires  uint64 `json:"acquires"`   // Lock acquisitions granted
}

// Worker is the runtime state of one pool member: a registry of named
// ops, the partition store, the shuffle inbox, and the worker's exclusive
// lock, all exposed over an HTTP API.
//
// Ops must be registered under the same names on every worker before the
// pool serves collective calls; there is no code shipping, only names.
type Worker struct {
	ID string

	Store *Store
	Inbox *Inbox

	mu   sync.RWMutex
	ops  map[string]OpFunc
	lock *Lock

	stats OpsStats
}

// New creates a worker with an empty store and op registry.
func New(id string) *Worker {
	return &Worker{
		ID:    id,
		Store: NewStore(),
		Inbox: NewInbox(),
		ops:   make(map[string]OpFunc),
		lock:  NewLock(),
	}
}

// Register adds a named op. Registering a name twice replaces the op.
func (w *Worker) Register(name string, fn OpFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops[name] = fn
}

func (w *Worker) op(name string) (OpFunc, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn, ok := w.ops[name]
	return fn, ok
}

// Lock returns the worker's exclusive lock.
func (w *Worker) Lock() *Lock { return w.lock }

// Stats returns a snapshot of operation counters.
func (w *Worker) Stats() OpsStats {
	return OpsStats{
		Execs:     atomic.LoadUint64(&w.stats.Execs),
		BucketsIn: atomic.LoadUint64(&w.stats.BucketsIn),
		Acquires:  atomic.LoadUint64(&w.stats.Acquires),
	}
}

// RegisterWith announces the worker to the coordinator.
func (w *Worker) RegisterWith(ctx context.Context, coordinatorURL, selfAddr string) error {
	req := cluster.RegisterRequest{Worker: cluster.WorkerInfo{ID: w.ID, Addr: selfAddr}}
	return cluster.PostJSON(ctx, coordinatorURL+"/register", req, nil)
}

// Handler returns the worker's HTTP API:
//
//	GET  /health        - liveness probe
//	POST /exec          - run a registered op with a per-call state
//	POST /lock/acquire  - block until this worker's lock is held
//	POST /lock/release  - release the lock (token must match)
//	POST /shuffle/part  - receive one peer-to-peer bucket
//	PUT  /frames/{key}  - store a partition
//	GET  /frames/{key}  - fetch a partition
//	DELETE /frames/{key} - drop a partition
//	GET  /stats         - operation and storage statistics
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/exec", w.handleExec)
	mux.HandleFunc("/lock/acquire", w.handleLockAcquire)
	mux.HandleFunc("/lock/release", w.handleLockRelease)
	mux.HandleFunc("/shuffle/part", w.handleBucket)
	mux.HandleFunc("/frames/", w.handleFrames)
	mux.HandleFunc("/stats", w.handleStats)
	return mux
}

func (w *Worker) handleExec(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cluster.ExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad json", http.StatusBadRequest)
		return
	}
	fn, ok := w.op(req.Op)
	if !ok {
		http.Error(rw, fmt.Sprintf("unknown op %q", req.Op), http.StatusNotFound)
		return
	}
	atomic.AddUint64(&w.stats.Execs, 1)

	// The op runs under the request context: if the caller aborts the
	// collective call, the op observes cancellation at its next suspension
	// point.
	result, err := fn(r.Context(), w, &req.State)
	if err != nil {
		log.Printf("worker %s: op %q failed: %v", w.ID, req.Op, err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		http.Error(rw, fmt.Sprintf("encode result: %v", err), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(rw).Encode(cluster.ExecResponse{Result: encoded})
}

func (w *Worker) handleLockAcquire(rw http.ResponseWriter, r *http.Request) {
	var req cluster.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad json", http.StatusBadRequest)
		return
	}
	// Blocks until the lock is granted; the client long-polls this.
	if err := w.lock.Acquire(r.Context(), req.Token); err != nil {
		http.Error(rw, err.Error(), http.StatusConflict)
		return
	}
	atomic.AddUint64(&w.stats.Acquires, 1)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Worker) handleLockRelease(rw http.ResponseWriter, r *http.Request) {
	var req cluster.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad json", http.StatusBadRequest)
		return
	}
	if err := w.lock.Release(req.Token); err != nil {
		http.Error(rw, err.Error(), http.StatusConflict)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Worker) handleBucket(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cluster.BucketSend
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad json", http.StatusBadRequest)
		return
	}
	var f frame.Frame
	if err := json.Unmarshal(req.Frame, &f); err != nil {
		http.Error(rw, fmt.Sprintf("bad frame payload: %v", err), http.StatusBadRequest)
		return
	}
	c := Contribution{
		Frame:      &f,
		SenderRank: req.SenderRank,
		SourcePart: req.SourcePart,
		DestID:     req.DestID,
	}
	if err := w.Inbox.Put(req.Session, c); err != nil {
		http.Error(rw, err.Error(), http.StatusConflict)
		return
	}
	atomic.AddUint64(&w.stats.BucketsIn, 1)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Worker) handleFrames(rw http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/frames/")
	if key == "" {
		http.Error(rw, "frame key required", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var f frame.Frame
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(rw, "bad json", http.StatusBadRequest)
			return
		}
		w.Store.Put(key, &f)
		rw.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		f, err := w.Store.Get(key)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(rw).Encode(f)
	case http.MethodDelete:
		w.Store.Delete(key)
		rw.WriteHeader(http.StatusNoContent)
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (w *Worker) handleStats(rw http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(rw).Encode(struct {
		ID      string     `json:"id"`
		Ops     OpsStats   `json:"ops"`
		Storage StoreStats `json:"storage"`
	}{ID: w.ID, Ops: w.Stats(), Storage: w.Store.Stats()})
}
