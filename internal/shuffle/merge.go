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

// runJoin is the worker-side local-join step of a merge. Both relations
// have already been shuffled with the same columns, modulus, and owner
// rule, so for each destination id this worker owns, the matching left
// and right partitions are co-located in its store. The join itself is
// purely local.
func runJoin(ctx context.Context, w *worker.Worker, state *cluster.CallState) (any, error) {
	var plan JoinPlan
	if err := json.Unmarshal(state.Args, &plan); err != nil {
		return nil, fmt.Errorf("decode join plan: %w", err)
	}
	n := state.NWorkers()

	produced := make([]string, 0)
	for _, destID := range OwnedDests(plan.NOut, state.Rank, n) {
		left, err := w.Store.Take(fmt.Sprintf("%s/%d", plan.LeftPrefix, destID))
		if err != nil {
			return nil, fmt.Errorf("left partition %d: %w", destID, err)
		}
		right, err := w.Store.Take(fmt.Sprintf("%s/%d", plan.RightPrefix, destID))
		if err != nil {
			return nil, fmt.Errorf("right partition %d: %w", destID, err)
		}
		joined, err := frame.Join(left, right, plan.On)
		if err != nil {
			return nil, fmt.Errorf("join partition %d: %w", destID, err)
		}
		key := plan.OutKey(destID)
		w.Store.Put(key, joined)
		produced = append(produced, key)
	}
	return produced, nil
}

// Merge equi-joins two datasets on the given key columns. Both sides are
// shuffled with identical columns, modulus, and destination-owner
// assignment, so rows with equal keys land on the same worker; each
// destination then joins its co-located partitions locally. Up to row
// order, the global result equals a centralized join of the two
// relations.
//
// The output partition count is the larger of the two input partition
// counts.
func Merge(ctx context.Context, c *comms.Context, left, right Dataset, on []string) (Dataset, error) {
	if len(left.Parts) == 0 || len(right.Parts) == 0 {
		return Dataset{}, fmt.Errorf("merge requires non-empty datasets on both sides")
	}
	nOut := len(left.Parts)
	if len(right.Parts) > nOut {
		nOut = len(right.Parts)
	}

	id := uuid.NewString()
	leftPrefix := "merge-left-" + id
	rightPrefix := "merge-right-" + id

	if _, err := shuffleAs(ctx, c, left, on, nOut, leftPrefix); err != nil {
		return Dataset{}, fmt.Errorf("shuffle left: %w", err)
	}
	if _, err := shuffleAs(ctx, c, right, on, nOut, rightPrefix); err != nil {
		return Dataset{}, fmt.Errorf("shuffle right: %w", err)
	}

	plan := JoinPlan{
		On:          on,
		NOut:        nOut,
		LeftPrefix:  leftPrefix,
		RightPrefix: rightPrefix,
		OutPrefix:   "merge-" + id,
	}
	if _, err := c.Run(ctx, OpJoin, plan, nil); err != nil {
		return Dataset{}, err
	}
	return ownedDataset(c.Ranks(), nOut, plan.OutKey), nil
}
