// Package main implements the rowmesh worker process: one pool member
// serving the op-execution, partition-store, shuffle-inbox, and lock
// endpoints, with the shuffle ops pre-registered.
//
// Configuration:
//   - WORKER_ID: Unique worker identifier (required)
//   - WORKER_LISTEN: Listen address (default: ":8081")
//   - WORKER_ADDR: Public base URL for peers (default: "http://127.0.0.1:8081")
//   - COORDINATOR_ADDR: Coordinator URL (required)
//
// Example usage:
//
//	WORKER_ID=worker-1 \
//	WORKER_LISTEN=:8081 \
//	WORKER_ADDR=http://localhost:8081 \
//	COORDINATOR_ADDR=http://localhost:8080 \
//	./worker
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/rowmesh/internal/shuffle"
	"github.com/dreamware/rowmesh/internal/worker"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	id := os.Getenv("WORKER_ID")
	if id == "" {
		logFatal("WORKER_ID is required")
	}
	listen := getenv("WORKER_LISTEN", ":8081")
	selfAddr := getenv("WORKER_ADDR", "http://127.0.0.1:8081")
	coordinatorAddr := os.Getenv("COORDINATOR_ADDR")
	if coordinatorAddr == "" {
		logFatal("COORDINATOR_ADDR is required")
	}

	w := worker.New(id)
	shuffle.RegisterOps(w)

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("worker %s listening on %s (public %s)", id, listen, selfAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	// Register after the listener is up so the first coordinator probe
	// doesn't race the server start.
	regCtx, regCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := w.RegisterWith(regCtx, coordinatorAddr, selfAddr); err != nil {
		regCancel()
		logFatal("register with coordinator: %v", err)
	}
	regCancel()
	log.Printf("worker %s registered with coordinator %s", id, coordinatorAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Printf("worker %s stopped", id)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
