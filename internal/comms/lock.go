package comms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/rowmesh/internal/cluster"
)

// MultiLock holds the exclusive locks of a set of workers. Two MultiLocks
// over disjoint worker sets proceed concurrently; any overlap serializes,
// because the overlapped worker's lock is exclusive.
//
// Deadlock freedom is structural, not detected: constituent locks are
// always acquired in sorted address order and released in reverse, so two
// acquisitions can never wait on each other in a cycle.
type MultiLock struct {
	token string
	held  []string // addresses whose locks are currently held, in acquisition order
}

// AcquireLock blocks until the exclusive lock of every worker in the set
// is held. Acquisition of each constituent lock long-polls the worker; it
// suspends rather than spins. On any failure the locks already held are
// released before the error is returned.
func AcquireLock(ctx context.Context, workers []string) (*MultiLock, error) {
	if len(workers) == 0 {
		return nil, ErrEmptyPool
	}
	ordered := append([]string(nil), workers...)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	l := &MultiLock{token: uuid.NewString()}
	for _, addr := range ordered {
		req := cluster.LockRequest{Token: l.token}
		if err := cluster.PostJSONWait(ctx, addr+"/lock/acquire", req, nil); err != nil {
			relErr := l.Release(context.WithoutCancel(ctx))
			return nil, errors.Join(fmt.Errorf("acquire lock on %s: %w", addr, err), relErr)
		}
		l.held = append(l.held, addr)
	}
	return l, nil
}

// Release frees every held constituent lock in reverse acquisition order.
// All releases are attempted even if some fail; failures are joined.
// Release is idempotent.
func (l *MultiLock) Release(ctx context.Context) error {
	var errs []error
	for i := len(l.held) - 1; i >= 0; i-- {
		addr := l.held[i]
		req := cluster.LockRequest{Token: l.token}
		if err := cluster.PostJSON(ctx, addr+"/lock/release", req, nil); err != nil {
			errs = append(errs, fmt.Errorf("release lock on %s: %w", addr, err))
		}
	}
	l.held = nil
	return errors.Join(errs...)
}
