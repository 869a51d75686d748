package worker

import (
	"context"
	"fmt"
	"sync"
)

// Lock is this worker's exclusive lock, one constituent of a pool-wide
// MultiLock. Acquire suspends the caller until the lock is free; it never
// spins. The holder is identified by an opaque token so that a release
// from anyone but the current holder is rejected.
type Lock struct {
	mu     sync.Mutex
	slot   chan struct{} // capacity 1; holding the element means holding the lock
	holder string
}

// NewLock creates a free lock
func NewLock() *Lock {
	l := &Lock{slot: make(chan struct{}, 1)}
	l.slot <- struct{}{}
	return l
}

// Acquire blocks until the lock is free, then takes it for token. Returns
// the context error if ctx is done first, leaving the lock untouched.
func (l *Lock) Acquire(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("lock token cannot be empty")
	}
	select {
	case <-l.slot:
		l.mu.Lock()
		l.holder = token
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock. The token must match the current holder.
func (l *Lock) Release(token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == "" {
		return fmt.Errorf("lock is not held")
	}
	if l.holder != token {
		return fmt.Errorf("lock held by another token")
	}
	l.holder = ""
	l.slot <- struct{}{}
	return nil
}

// Holder returns the current holder token, or "" when free.
func (l *Lock) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}
