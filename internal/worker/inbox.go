package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dreamware/rowmesh/internal/frame"
)

// Contribution is one inbound bucket: the rows a peer produced for a
// destination id owned by this worker.
type Contribution struct {
	Frame      *frame.Frame
	SenderRank int
	SourcePart int
	DestID     int
}

// Inbox collects buckets arriving peer-to-peer during an exchange and
// implements the completion barrier: a destination partition is assembled
// only once the exact expected number of contributions for its id has
// arrived. The expected count is decided by the exchange plan before any
// send happens, never inferred from traffic.
//
// State is keyed by session so that concurrent shuffles through the same
// worker cannot mix buckets. A failed session's partial state is discarded
// wholesale; partially received buckets are never exposed.
type Inbox struct {
	mu       sync.Mutex
	sessions map[string]*sessionInbox
}

type sessionInbox struct {
	byDest  map[int][]Contribution
	changed chan struct{} // closed and replaced on every arrival
}

// NewInbox creates an empty inbox
func NewInbox() *Inbox {
	return &Inbox{sessions: make(map[string]*sessionInbox)}
}

func (b *Inbox) session(session string) *sessionInbox {
	s, ok := b.sessions[session]
	if !ok {
		s = &sessionInbox{
			byDest:  make(map[int][]Contribution),
			changed: make(chan struct{}),
		}
		b.sessions[session] = s
	}
	return s
}

// Put records an arrived bucket and wakes any collector waiting on the
// session. Duplicate (sender rank, source partition) pairs for one
// destination are rejected; the transport does not retry, so a duplicate
// means a protocol bug.
func (b *Inbox) Put(session string, c Contribution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.session(session)
	for _, have := range s.byDest[c.DestID] {
		if have.SenderRank == c.SenderRank && have.SourcePart == c.SourcePart {
			return fmt.Errorf("duplicate bucket from rank %d part %d for dest %d",
				c.SenderRank, c.SourcePart, c.DestID)
		}
	}
	s.byDest[c.DestID] = append(s.byDest[c.DestID], c)
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

// Collect blocks until exactly expected contributions have arrived for the
// given destination id, then removes and returns them ordered by
// (sender rank, source partition) ascending. The fixed order is what makes
// destination assembly deterministic. Returns the context error if ctx
// ends first.
func (b *Inbox) Collect(ctx context.Context, session string, destID, expected int) ([]Contribution, error) {
	for {
		b.mu.Lock()
		s := b.session(session)
		have := s.byDest[destID]
		if len(have) > expected {
			b.mu.Unlock()
			return nil, fmt.Errorf("dest %d received %d buckets, expected %d", destID, len(have), expected)
		}
		if len(have) == expected {
			delete(s.byDest, destID)
			b.mu.Unlock()
			sort.Slice(have, func(i, j int) bool {
				if have[i].SenderRank != have[j].SenderRank {
					return have[i].SenderRank < have[j].SenderRank
				}
				return have[i].SourcePart < have[j].SourcePart
			})
			return have, nil
		}
		changed := s.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Discard drops all state for a session. Called when an exchange fails so
// stray late arrivals for it cannot leak into view.
func (b *Inbox) Discard(session string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, session)
}
