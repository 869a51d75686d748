// Package main implements the rowmesh coordinator, the pool membership
// service workers register with and drivers discover the pool from.
//
// Configuration:
//   - COORDINATOR_ADDR: Listen address (default: ":8080")
//   - HEALTH_INTERVAL: Worker probe interval (default: "10s")
//
// Example usage:
//
//	COORDINATOR_ADDR=:8080 ./coordinator
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/coordinator"
)

func main() {
	addr := getenv("COORDINATOR_ADDR", ":8080")
	interval := 10 * time.Second
	if v := os.Getenv("HEALTH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("bad HEALTH_INTERVAL %q: %v", v, err)
		}
		interval = d
	}

	srv := newServer(interval)

	mux := http.NewServeMux()
	mux.HandleFunc("/register", srv.handleRegister)
	mux.HandleFunc("/workers", srv.handleListWorkers)
	mux.HandleFunc("/pool/health", srv.handlePoolHealth)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	monCtx, stopMonitor := context.WithCancel(context.Background())
	go srv.monitor.Start(monCtx, srv.registry.Snapshot)

	go func() {
		log.Printf("coordinator listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	stopMonitor()
	srv.monitor.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Println("coordinator stopped")
}

type server struct {
	registry *coordinator.Registry
	monitor  *coordinator.Monitor
}

func newServer(interval time.Duration) *server {
	s := &server{
		registry: coordinator.NewRegistry(),
		monitor:  coordinator.NewMonitor(interval),
	}
	// A worker that stops answering probes is removed from the pool so the
	// next membership snapshot excludes it.
	s.monitor.SetOnUnhealthy(func(workerID string) {
		log.Printf("removing unhealthy worker %s from pool", workerID)
		s.registry.Remove(workerID)
	})
	return s
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.registry.Register(req.Worker); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("registered worker %s at %s (%d in pool)",
		req.Worker.ID, req.Worker.Addr, s.registry.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(cluster.WorkerListResponse{Workers: s.registry.Snapshot()})
}

func (s *server) handlePoolHealth(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(struct {
		Workers []coordinator.WorkerHealth `json:"workers"`
	}{Workers: s.monitor.Health()})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
