package shuffle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/comms"
	"github.com/dreamware/rowmesh/internal/frame"
	"github.com/dreamware/rowmesh/internal/worker"
)

// Op names under which the exchange and join units of work are registered
// on every worker. Registration happens at worker startup via RegisterOps;
// the driver only ever sends these names, never code.
const (
	OpExchange = "shuffle.exchange"
	OpJoin     = "shuffle.join"
)

// TransmissionError reports a failed peer-to-peer bucket send. It fails
// the enclosing shuffle; there is no retry at this layer.
type TransmissionError struct {
	Dest string
	Err  error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("bucket send to %s failed: %v", e.Dest, e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// RegisterOps installs the shuffle ops on a worker. Must run on every pool
// member before the driver issues a shuffle or merge.
func RegisterOps(w *worker.Worker) {
	w.Register(OpExchange, runExchange)
	w.Register(OpJoin, runJoin)
}

// runExchange is the worker-side half of the all-to-all exchange. Every
// worker runs it once per shuffle call:
//
//  1. consume each locally held source partition, hash its rows, and split
//     it into NOut buckets
//  2. send every bucket, empty ones included, directly to the worker that
//     owns its destination id
//  3. for each owned destination id, wait until the plan-expected number
//     of buckets has arrived, then concatenate them in (sender rank,
//     source partition) order into the output partition
//
// Step 3 is the collective barrier: the op does not return until all of
// this worker's output partitions are assembled. On any failure the
// session's partial inbox state is discarded so no half-received partition
// can ever be observed.
func runExchange(ctx context.Context, w *worker.Worker, state *cluster.CallState) (any, error) {
	var plan ExchangePlan
	if err := json.Unmarshal(state.Args, &plan); err != nil {
		return nil, fmt.Errorf("decode exchange plan: %w", err)
	}
	n := state.NWorkers()

	fail := func(err error) (any, error) {
		w.Inbox.Discard(state.Session)
		return nil, err
	}

	for gi, src := range plan.Sources {
		if src.Rank != state.Rank {
			continue
		}
		f, err := w.Store.Take(src.Key)
		if err != nil {
			return fail(fmt.Errorf("source partition %d (%q): %w", gi, src.Key, err))
		}
		ids, err := frame.PartitionIDs(f, plan.Columns, plan.NOut)
		if err != nil {
			return fail(err)
		}
		buckets, err := frame.Split(f, ids, plan.NOut)
		if err != nil {
			return fail(err)
		}
		for destID, bucket := range buckets {
			payload, err := json.Marshal(bucket)
			if err != nil {
				return fail(err)
			}
			owner := state.Workers[Owner(destID, n)]
			send := cluster.BucketSend{
				Session:    state.Session,
				SenderRank: state.Rank,
				SourcePart: gi,
				DestID:     destID,
				Frame:      payload,
			}
			if err := cluster.PostJSON(ctx, owner+"/shuffle/part", send, nil); err != nil {
				return fail(&TransmissionError{Dest: owner, Err: err})
			}
		}
	}

	expected := plan.ExpectedPerDest()
	produced := make([]string, 0)
	for _, destID := range OwnedDests(plan.NOut, state.Rank, n) {
		contribs, err := w.Inbox.Collect(ctx, state.Session, destID, expected)
		if err != nil {
			return fail(err)
		}
		frames := make([]*frame.Frame, len(contribs))
		for i, c := range contribs {
			frames[i] = c.Frame
		}
		out, err := frame.Concat(frames...)
		if err != nil {
			return fail(err)
		}
		key := plan.OutKey(destID)
		w.Store.Put(key, out)
		produced = append(produced, key)
	}
	w.Inbox.Discard(state.Session)
	return produced, nil
}

// Shuffle redistributes a dataset by key: the result has exactly nOut
// partitions and output partition i globally holds every input row whose
// key hash maps to i, drawn from all source workers. Rows move directly
// between workers; the driver only distributes the plan and collects
// completion.
//
// The call is one collective: it suspends until every worker has
// assembled its outputs, and any worker-side or transmission failure
// fails the whole shuffle.
func Shuffle(ctx context.Context, c *comms.Context, ds Dataset, columns []string, nOut int) (Dataset, error) {
	return shuffleAs(ctx, c, ds, columns, nOut, "shuffle-"+uuid.NewString())
}

func shuffleAs(ctx context.Context, c *comms.Context, ds Dataset, columns []string, nOut int, prefix string) (Dataset, error) {
	if nOut <= 0 {
		return Dataset{}, fmt.Errorf("number of output partitions must be positive, got %d", nOut)
	}
	if len(ds.Parts) == 0 {
		return Dataset{}, fmt.Errorf("dataset has no partitions")
	}
	ranks := c.Ranks()
	sources := make([]SourcePart, len(ds.Parts))
	for i, p := range ds.Parts {
		rank, err := ranks.Rank(p.Addr)
		if err != nil {
			return Dataset{}, err
		}
		sources[i] = SourcePart{Rank: rank, Key: p.Key}
	}
	plan := ExchangePlan{
		Columns:   columns,
		NOut:      nOut,
		Sources:   sources,
		OutPrefix: prefix,
	}
	if _, err := c.Run(ctx, OpExchange, plan, nil); err != nil {
		return Dataset{}, err
	}
	return ownedDataset(ranks, nOut, plan.OutKey), nil
}

// ownedDataset derives the output dataset handle from the fixed owner
// rule; no worker round trip is needed because placement is deterministic.
func ownedDataset(ranks comms.RankMap, nOut int, key func(int) string) Dataset {
	parts := make([]PartitionRef, nOut)
	for id := 0; id < nOut; id++ {
		addr, _ := ranks.Addr(Owner(id, ranks.N()))
		parts[id] = PartitionRef{Addr: addr, Key: key(id)}
	}
	return Dataset{Parts: parts}
}
