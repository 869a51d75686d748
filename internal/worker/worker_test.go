package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/frame"
)

func newTestWorker(t *testing.T) (*Worker, *httptest.Server) {
	t.Helper()
	w := New("worker-1")
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)
	return w, srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to encode body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// TestHandleExec tests the collective-call execution endpoint
func TestHandleExec(t *testing.T) {
	t.Run("runs a registered op and returns its result", func(t *testing.T) {
		w, srv := newTestWorker(t)
		w.Register("echo", func(ctx context.Context, w *Worker, state *cluster.CallState) (any, error) {
			return map[string]int{"rank": state.Rank}, nil
		})

		req := cluster.ExecRequest{Op: "echo", State: cluster.CallState{Session: "s1", Rank: 2}}
		resp := postJSON(t, srv.URL+"/exec", req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}

		var execResp cluster.ExecResponse
		if err := json.NewDecoder(resp.Body).Decode(&execResp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		var result map[string]int
		if err := json.Unmarshal(execResp.Result, &result); err != nil {
			t.Fatalf("Failed to decode result: %v", err)
		}
		if result["rank"] != 2 {
			t.Errorf("Expected rank 2 in result, got %d", result["rank"])
		}
	})

	t.Run("unknown op returns 404", func(t *testing.T) {
		_, srv := newTestWorker(t)
		req := cluster.ExecRequest{Op: "nope"}
		resp := postJSON(t, srv.URL+"/exec", req)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("op error returns 500 with the message", func(t *testing.T) {
		w, srv := newTestWorker(t)
		w.Register("fail", func(ctx context.Context, w *Worker, state *cluster.CallState) (any, error) {
			return nil, errors.New("boom")
		})
		resp := postJSON(t, srv.URL+"/exec", cluster.ExecRequest{Op: "fail"})
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		_, srv := newTestWorker(t)
		resp, err := http.Get(srv.URL + "/exec")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", resp.StatusCode)
		}
	})

	t.Run("counts executions", func(t *testing.T) {
		w, srv := newTestWorker(t)
		w.Register("noop", func(ctx context.Context, w *Worker, state *cluster.CallState) (any, error) {
			return nil, nil
		})
		for i := 0; i < 3; i++ {
			postJSON(t, srv.URL+"/exec", cluster.ExecRequest{Op: "noop"})
		}
		if got := w.Stats().Execs; got != 3 {
			t.Errorf("Expected 3 execs, got %d", got)
		}
	})
}

// TestHandleLock tests the lock endpoints
func TestHandleLock(t *testing.T) {
	t.Run("acquire and release", func(t *testing.T) {
		w, srv := newTestWorker(t)

		resp := postJSON(t, srv.URL+"/lock/acquire", cluster.LockRequest{Token: "t1"})
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected status 204 on acquire, got %d", resp.StatusCode)
		}
		if holder := w.Lock().Holder(); holder != "t1" {
			t.Errorf("Expected holder t1, got %q", holder)
		}

		resp = postJSON(t, srv.URL+"/lock/release", cluster.LockRequest{Token: "t1"})
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected status 204 on release, got %d", resp.StatusCode)
		}
		if holder := w.Lock().Holder(); holder != "" {
			t.Errorf("Expected lock free after release, holder is %q", holder)
		}
	})

	t.Run("release with wrong token returns 409", func(t *testing.T) {
		_, srv := newTestWorker(t)
		postJSON(t, srv.URL+"/lock/acquire", cluster.LockRequest{Token: "t1"})
		resp := postJSON(t, srv.URL+"/lock/release", cluster.LockRequest{Token: "t2"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", resp.StatusCode)
		}
	})
}

// TestHandleBucket tests the peer-to-peer bucket endpoint
func TestHandleBucket(t *testing.T) {
	t.Run("delivers a bucket into the inbox", func(t *testing.T) {
		w, srv := newTestWorker(t)

		f := testFrame(t, 7, 8)
		payload, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("Failed to encode frame: %v", err)
		}
		send := cluster.BucketSend{Session: "s1", SenderRank: 1, SourcePart: 0, DestID: 3, Frame: payload}
		resp := postJSON(t, srv.URL+"/shuffle/part", send)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected status 204, got %d", resp.StatusCode)
		}

		contribs, err := w.Inbox.Collect(context.Background(), "s1", 3, 1)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if contribs[0].Frame.NumRows() != 2 {
			t.Errorf("Expected 2 rows in delivered bucket, got %d", contribs[0].Frame.NumRows())
		}
		if got := w.Stats().BucketsIn; got != 1 {
			t.Errorf("Expected 1 bucket counted, got %d", got)
		}
	})

	t.Run("duplicate bucket returns 409", func(t *testing.T) {
		_, srv := newTestWorker(t)
		payload, _ := json.Marshal(testFrame(t, 1))
		send := cluster.BucketSend{Session: "s1", SenderRank: 0, SourcePart: 0, DestID: 0, Frame: payload}
		postJSON(t, srv.URL+"/shuffle/part", send)
		resp := postJSON(t, srv.URL+"/shuffle/part", send)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", resp.StatusCode)
		}
	})
}

// TestHandleFrames tests the partition storage endpoints
func TestHandleFrames(t *testing.T) {
	t.Run("put get delete round trip", func(t *testing.T) {
		w, srv := newTestWorker(t)
		f := testFrame(t, 1, 2, 3)

		body, _ := json.Marshal(f)
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/frames/part-0", bytes.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected status 204 on PUT, got %d", resp.StatusCode)
		}

		getResp, err := http.Get(srv.URL + "/frames/part-0")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer getResp.Body.Close()
		var got frame.Frame
		if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if !frame.Equal(&got, f) {
			t.Error("Fetched frame differs from stored frame")
		}

		delReq, _ := http.NewRequest(http.MethodDelete, srv.URL+"/frames/part-0", nil)
		delResp, err := http.DefaultClient.Do(delReq)
		if err != nil {
			t.Fatalf("DELETE failed: %v", err)
		}
		delResp.Body.Close()
		if _, err := w.Store.Get("part-0"); !errors.Is(err, ErrFrameNotFound) {
			t.Error("Frame still present after DELETE")
		}
	})

	t.Run("keys may contain slashes", func(t *testing.T) {
		w, srv := newTestWorker(t)
		body, _ := json.Marshal(testFrame(t, 1))
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/frames/shuffle-abc/4", bytes.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT failed: %v", err)
		}
		resp.Body.Close()
		if _, err := w.Store.Get("shuffle-abc/4"); err != nil {
			t.Errorf("Expected frame under composite key: %v", err)
		}
	})

	t.Run("missing frame returns 404", func(t *testing.T) {
		_, srv := newTestWorker(t)
		resp, err := http.Get(srv.URL + "/frames/nope")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	})
}

// TestHandleStats tests the statistics endpoint
func TestHandleStats(t *testing.T) {
	w, srv := newTestWorker(t)
	w.Store.Put("part-0", testFrame(t, 1, 2, 3))

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var stats struct {
		ID      string     `json:"id"`
		Ops     OpsStats   `json:"ops"`
		Storage StoreStats `json:"storage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.ID != "worker-1" {
		t.Errorf("Expected id worker-1, got %q", stats.ID)
	}
	if stats.Storage.Frames != 1 || stats.Storage.Rows != 3 {
		t.Errorf("Unexpected storage stats: %+v", stats.Storage)
	}
}

// TestHealth tests the liveness probe
func TestHealth(t *testing.T) {
	_, srv := newTestWorker(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}
