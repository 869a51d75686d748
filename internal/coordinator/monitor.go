package coordinator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dreamware/rowmesh/internal/cluster"
)

// WorkerHealth tracks the liveness of a single registered worker.
// Protected by the monitor's mutex when accessed.
type WorkerHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	WorkerID         string    // Unique identifier of the worker
	Status           string    // Current status: "healthy", "unhealthy", "unknown"
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// Monitor performs periodic health checks on all registered workers. A
// worker that fails maxFailures consecutive checks is reported through
// the onUnhealthy callback, typically wired to Registry.Remove: a dead
// worker must leave the membership before the next collective call, since
// an exchange with an unreachable participant fails outright.
//
// Thread-safe: all methods are safe for concurrent access.
type Monitor struct {
	workers     map[string]*WorkerHealth
	httpClient  *http.Client
	checkFunc   func(addr string) error // Overridable for tests
	onUnhealthy func(workerID string)
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int
}

// NewMonitor creates a health monitor that probes each worker's /health
// endpoint every interval. Workers are marked unhealthy after 3
// consecutive failures.
func NewMonitor(interval time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		workers:     make(map[string]*WorkerHealth),
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetOnUnhealthy sets the callback invoked when a worker crosses the
// failure threshold.
func (m *Monitor) SetOnUnhealthy(callback func(workerID string)) {
	m.onUnhealthy = callback
}

// SetCheckFunction replaces the HTTP health probe, for tests.
func (m *Monitor) SetCheckFunction(fn func(addr string) error) {
	m.checkFunc = fn
}

// Start runs the monitoring loop in the calling goroutine until the
// context is canceled or Stop is called. provider supplies the current
// membership on each tick.
func (m *Monitor) Start(ctx context.Context, provider func() []cluster.WorkerInfo) {
	m.wg.Add(1)
	defer m.wg.Done()

	if ctx == nil {
		ctx = m.ctx
	}
	if m.checkFunc == nil {
		m.checkFunc = m.probe
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("pool monitor started with interval %v", m.interval)
	m.checkAll(provider())

	for {
		select {
		case <-ticker.C:
			m.checkAll(provider())
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// Stop shuts the monitor down and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Health returns a snapshot of the tracked worker healths.
func (m *Monitor) Health() []WorkerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WorkerHealth, 0, len(m.workers))
	for _, h := range m.workers {
		out = append(out, *h)
	}
	return out
}

// WorkerHealth returns the tracked health of one worker, or nil if the
// worker is not monitored.
func (m *Monitor) WorkerHealth(id string) *WorkerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.workers[id]
	if !ok {
		return nil
	}
	copied := *h
	return &copied
}

// Healthy reports whether the worker is currently considered healthy.
// Unknown workers are not healthy.
func (m *Monitor) Healthy(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.workers[id]
	return ok && h.Status == "healthy"
}

func (m *Monitor) probe(addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (m *Monitor) checkAll(workers []cluster.WorkerInfo) {
	current := make(map[string]bool, len(workers))
	for _, w := range workers {
		current[w.ID] = true
		m.check(w)
	}

	// Drop tracking for workers that have left the pool.
	m.mu.Lock()
	for id := range m.workers {
		if !current[id] {
			delete(m.workers, id)
		}
	}
	m.mu.Unlock()
}

func (m *Monitor) check(w cluster.WorkerInfo) {
	m.mu.Lock()
	health, exists := m.workers[w.ID]
	if !exists {
		health = &WorkerHealth{
			WorkerID:    w.ID,
			Status:      "unknown",
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		m.workers[w.ID] = health
	}
	m.mu.Unlock()

	err := m.checkFunc(w.Addr)

	m.mu.Lock()
	health.LastCheck = time.Now()
	if err != nil {
		health.ConsecutiveFails++
		if health.ConsecutiveFails >= m.maxFailures && health.Status != "unhealthy" {
			health.Status = "unhealthy"
			log.Printf("worker %s marked unhealthy after %d failed checks: %v",
				w.ID, health.ConsecutiveFails, err)
			if m.onUnhealthy != nil {
				callback := m.onUnhealthy
				m.mu.Unlock()
				callback(w.ID)
				return
			}
		}
	} else {
		if health.Status == "unhealthy" {
			log.Printf("worker %s recovered", w.ID)
		}
		health.Status = "healthy"
		health.LastHealthy = time.Now()
		health.ConsecutiveFails = 0
	}
	m.mu.Unlock()
}
