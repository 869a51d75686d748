// Package integration exercises the full pipeline: workers registering
// with a coordinator, driver-side discovery, and the shuffle and merge
// collectives over real HTTP.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/comms"
	"github.com/dreamware/rowmesh/internal/coordinator"
	"github.com/dreamware/rowmesh/internal/frame"
	"github.com/dreamware/rowmesh/internal/shuffle"
	"github.com/dreamware/rowmesh/internal/worker"
)

// testCluster is a full in-process deployment: a coordinator server and
// a pool of workers registered with it over HTTP.
type testCluster struct {
	coordURL string
	workers  []*worker.Worker
}

func startCluster(t *testing.T, nWorkers int) *testCluster {
	t.Helper()
	registry := coordinator.NewRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := registry.Register(req.Worker); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/workers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cluster.WorkerListResponse{Workers: registry.Snapshot()})
	})
	coordSrv := httptest.NewServer(mux)
	t.Cleanup(coordSrv.Close)

	tc := &testCluster{coordURL: coordSrv.URL}
	for i := 0; i < nWorkers; i++ {
		w := worker.New(fmt.Sprintf("worker-%d", i))
		shuffle.RegisterOps(w)
		srv := httptest.NewServer(w.Handler())
		t.Cleanup(srv.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.RegisterWith(ctx, coordSrv.URL, srv.URL)
		cancel()
		if err != nil {
			t.Fatalf("Worker %d failed to register: %v", i, err)
		}
		tc.workers = append(tc.workers, w)
	}
	return tc
}

// TestShufflePipeline runs discovery, scatter, shuffle, and gather
// end to end.
func TestShufflePipeline(t *testing.T) {
	tc := startCluster(t, 3)

	c, err := comms.Discover(context.Background(), tc.coordURL)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if c.Ranks().N() != 3 {
		t.Fatalf("Expected 3 discovered workers, got %d", c.Ranks().N())
	}

	const rows = 100
	keys := make([]int64, rows)
	vals := make([]float64, rows)
	for i := range keys {
		keys[i] = int64(i % 17)
		vals[i] = float64(i)
	}
	input, err := frame.New(frame.IntCol("key", keys...), frame.FloatCol("val", vals...))
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}

	parts := make([]*frame.Frame, 4)
	for p := range parts {
		indices := make([]int, 0, rows/4)
		for i := p; i < rows; i += 4 {
			indices = append(indices, i)
		}
		part, err := input.Take(indices)
		if err != nil {
			t.Fatalf("Failed to slice input: %v", err)
		}
		parts[p] = part
	}

	ds, err := shuffle.Scatter(context.Background(), c, parts)
	if err != nil {
		t.Fatalf("Scatter failed: %v", err)
	}
	out, err := shuffle.Shuffle(context.Background(), c, ds, []string{"key"}, 5)
	if err != nil {
		t.Fatalf("Shuffle failed: %v", err)
	}
	if len(out.Parts) != 5 {
		t.Fatalf("Expected 5 output partitions, got %d", len(out.Parts))
	}

	gathered, err := shuffle.Gather(context.Background(), c, out)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	// Each key's rows must land whole in exactly one output partition.
	keyPart := make(map[int64]int)
	total := 0
	for pi, f := range gathered {
		total += f.NumRows()
		col, err := f.Column("key")
		if err != nil {
			t.Fatalf("Output partition lost key column: %v", err)
		}
		for _, k := range col.Ints {
			if prev, seen := keyPart[k]; seen && prev != pi {
				t.Errorf("Key %d split across partitions %d and %d", k, prev, pi)
			}
			keyPart[k] = pi
		}
	}
	if total != rows {
		t.Errorf("Expected %d rows after shuffle, got %d", rows, total)
	}
}

// TestMergePipeline runs a distributed equi-join end to end and checks
// the result against a centralized join.
func TestMergePipeline(t *testing.T) {
	tc := startCluster(t, 2)

	c, err := comms.Discover(context.Background(), tc.coordURL)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	left, err := frame.New(
		frame.IntCol("key", 1, 2, 3, 4, 5, 6),
		frame.StringCol("name", "a", "b", "c", "d", "e", "f"),
	)
	if err != nil {
		t.Fatalf("Failed to build left frame: %v", err)
	}
	right, err := frame.New(
		frame.IntCol("key", 2, 4, 6, 8),
		frame.FloatCol("score", 0.2, 0.4, 0.6, 0.8),
	)
	if err != nil {
		t.Fatalf("Failed to build right frame: %v", err)
	}

	leftDS, err := shuffle.Scatter(context.Background(), c, splitRows(t, left, 3))
	if err != nil {
		t.Fatalf("Scatter left failed: %v", err)
	}
	rightDS, err := shuffle.Scatter(context.Background(), c, splitRows(t, right, 2))
	if err != nil {
		t.Fatalf("Scatter right failed: %v", err)
	}

	out, err := shuffle.Merge(context.Background(), c, leftDS, rightDS, []string{"key"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	gathered, err := shuffle.Gather(context.Background(), c, out)
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	all, err := frame.Concat(gathered...)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	got, err := all.SortByColumn("key")
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	wantJoined, err := frame.Join(left, right, []string{"key"})
	if err != nil {
		t.Fatalf("Centralized join failed: %v", err)
	}
	want, err := wantJoined.SortByColumn("key")
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	if !frame.Equal(got, want) {
		t.Errorf("Distributed merge differs from centralized join: got %d rows, want %d",
			got.NumRows(), want.NumRows())
	}
}

// TestLockedCollectiveCall runs a collective call under a pool-wide lock
// end to end.
func TestLockedCollectiveCall(t *testing.T) {
	tc := startCluster(t, 2)

	c, err := comms.Discover(context.Background(), tc.coordURL)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	for _, w := range tc.workers {
		w.Register("whoami", func(ctx context.Context, w *worker.Worker, state *cluster.CallState) (any, error) {
			return w.ID, nil
		})
	}

	results, err := c.Run(context.Background(), "whoami", nil, &comms.RunOptions{Lock: true})
	if err != nil {
		t.Fatalf("Locked run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	// The lock must be free again after the call.
	for _, w := range tc.workers {
		if holder := w.Lock().Holder(); holder != "" {
			t.Errorf("Worker %s lock still held by %q after call", w.ID, holder)
		}
	}
}

func splitRows(t *testing.T, f *frame.Frame, nParts int) []*frame.Frame {
	t.Helper()
	rows := f.NumRows()
	out := make([]*frame.Frame, 0, nParts)
	start := 0
	for p := 0; p < nParts; p++ {
		size := rows / nParts
		if p < rows%nParts {
			size++
		}
		indices := make([]int, size)
		for i := range indices {
			indices[i] = start + i
		}
		start += size
		part, err := f.Take(indices)
		if err != nil {
			t.Fatalf("Failed to slice frame: %v", err)
		}
		out = append(out, part)
	}
	return out
}
