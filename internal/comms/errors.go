package comms

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned when a rank map is built from zero workers.
var ErrEmptyPool = errors.New("no workers in pool")

// UnknownWorkerError is returned when a target set names an address that
// is not a member of the current pool snapshot.
type UnknownWorkerError struct {
	Addr string
}

func (e *UnknownWorkerError) Error() string {
	return fmt.Sprintf("unknown worker %q", e.Addr)
}

// WorkerError reports a unit of work that failed on a remote worker. The
// failure aborts the whole collective call; the worker-side message is
// carried verbatim.
type WorkerError struct {
	Addr string
	Op   string
	Err  error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("op %q failed on worker %s: %v", e.Op, e.Addr, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }
