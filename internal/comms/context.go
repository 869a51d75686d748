package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/rowmesh/internal/cluster"
)

// Context is the handle for running collective calls against a worker
// pool. It is built from one membership snapshot; pool changes after
// construction are invisible to it, so every call made through one
// Context sees the same ranks.
type Context struct {
	ranks RankMap
}

// NewContext ranks the given worker addresses and returns a Context over
// them. Fails with ErrEmptyPool when the snapshot is empty.
func NewContext(workers []string) (*Context, error) {
	ranks, err := BuildRankMap(workers)
	if err != nil {
		return nil, err
	}
	return &Context{ranks: ranks}, nil
}

// Discover builds a Context from the coordinator's current membership.
func Discover(ctx context.Context, coordinatorURL string) (*Context, error) {
	var resp cluster.WorkerListResponse
	if err := cluster.GetJSON(ctx, coordinatorURL+"/workers", &resp); err != nil {
		return nil, fmt.Errorf("discover workers: %w", err)
	}
	addrs := make([]string, len(resp.Workers))
	for i, w := range resp.Workers {
		addrs[i] = w.Addr
	}
	return NewContext(addrs)
}

// Ranks returns the pool snapshot this context addresses.
func (c *Context) Ranks() RankMap { return c.ranks }

// RunOptions controls a single collective call.
type RunOptions struct {
	// Workers restricts the call to a subset of the pool. Empty means the
	// full pool. Every entry must be a member of the snapshot.
	Workers []string

	// Lock acquires a MultiLock over exactly the target workers before
	// dispatching and releases it after the call completes or fails.
	Lock bool
}

// Run executes the named op on each target worker, passing a per-call
// state that carries the worker's own rank, the rank-ordered pool
// addresses, a fresh session id, and args encoded as JSON.
//
// Results are returned in rank order of the target set regardless of
// completion order. One failing worker fails the whole call: the first
// error (in rank order) is returned, in-flight requests are canceled, and
// no partial results are exposed.
func (c *Context) Run(ctx context.Context, op string, args any, opts *RunOptions) ([]json.RawMessage, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	targets, err := c.resolveTargets(opts.Workers)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args for op %q: %w", op, err)
	}

	if opts.Lock {
		lock, err := AcquireLock(ctx, targets)
		if err != nil {
			return nil, err
		}
		// Released on every path, error or not, before Run returns.
		defer lock.Release(context.WithoutCancel(ctx))
	}

	session := uuid.NewString()
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]json.RawMessage, len(targets))
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, addr := range targets {
		rank, err := c.ranks.Rank(addr)
		if err != nil {
			return nil, err
		}
		req := cluster.ExecRequest{
			Op: op,
			State: cluster.CallState{
				Session: session,
				Rank:    rank,
				Workers: c.ranks.Addrs(),
				Args:    encoded,
			},
		}
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			var resp cluster.ExecResponse
			if err := cluster.PostJSONWait(callCtx, addr+"/exec", req, &resp); err != nil {
				errs[i] = &WorkerError{Addr: addr, Op: op, Err: err}
				cancel()
				return
			}
			results[i] = resp.Result
		}(i, addr)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// resolveTargets validates the requested subset against the snapshot and
// returns it in rank order. Rank order of a subset is sorted address
// order, which doubles as the canonical lock-acquisition order.
func (c *Context) resolveTargets(workers []string) ([]string, error) {
	if len(workers) == 0 {
		return c.ranks.Addrs(), nil
	}
	for _, addr := range workers {
		if !c.ranks.Contains(addr) {
			return nil, &UnknownWorkerError{Addr: addr}
		}
	}
	subset, err := BuildRankMap(workers)
	if err != nil {
		return nil, err
	}
	return subset.Addrs(), nil
}
