package shuffle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dreamware/rowmesh/internal/cluster"
	"github.com/dreamware/rowmesh/internal/comms"
	"github.com/dreamware/rowmesh/internal/frame"
)

// Scatter places the given frames on pool workers round-robin by rank and
// returns the dataset handle. Partition i lands on rank i mod N, matching
// the owner rule used for shuffle outputs.
func Scatter(ctx context.Context, c *comms.Context, frames []*frame.Frame) (Dataset, error) {
	if len(frames) == 0 {
		return Dataset{}, fmt.Errorf("scatter requires at least one frame")
	}
	ranks := c.Ranks()
	prefix := "scatter-" + uuid.NewString()
	parts := make([]PartitionRef, len(frames))
	for i, f := range frames {
		addr, err := ranks.Addr(i % ranks.N())
		if err != nil {
			return Dataset{}, err
		}
		key := fmt.Sprintf("%s/%d", prefix, i)
		if err := cluster.PutJSON(ctx, addr+"/frames/"+key, f); err != nil {
			return Dataset{}, fmt.Errorf("scatter partition %d to %s: %w", i, addr, err)
		}
		parts[i] = PartitionRef{Addr: addr, Key: key}
	}
	return Dataset{Parts: parts}, nil
}

// Gather fetches every partition of a dataset to the caller, in partition
// order. The partitions stay resident on their workers.
func Gather(ctx context.Context, c *comms.Context, ds Dataset) ([]*frame.Frame, error) {
	frames := make([]*frame.Frame, len(ds.Parts))
	for i, p := range ds.Parts {
		var f frame.Frame
		if err := cluster.GetJSON(ctx, p.Addr+"/frames/"+p.Key, &f); err != nil {
			return nil, fmt.Errorf("gather partition %d from %s: %w", i, p.Addr, err)
		}
		frames[i] = &f
	}
	return frames, nil
}

// RoutedShuffle is the fallback path used when explicit peer-to-peer
// comms are disabled: every partition is routed through the driver, which
// rehashes and redistributes centrally. Same contract as Shuffle - exact
// nOut outputs placed by the same owner rule - but all data crosses the
// driver, which is what the explicit path exists to avoid.
func RoutedShuffle(ctx context.Context, c *comms.Context, ds Dataset, columns []string, nOut int) (Dataset, error) {
	if nOut <= 0 {
		return Dataset{}, fmt.Errorf("number of output partitions must be positive, got %d", nOut)
	}
	frames, err := Gather(ctx, c, ds)
	if err != nil {
		return Dataset{}, err
	}
	for _, p := range ds.Parts {
		if err := deleteFrame(ctx, p); err != nil {
			return Dataset{}, err
		}
	}
	all, err := frame.Concat(frames...)
	if err != nil {
		return Dataset{}, err
	}
	ids, err := frame.PartitionIDs(all, columns, nOut)
	if err != nil {
		return Dataset{}, err
	}
	buckets, err := frame.Split(all, ids, nOut)
	if err != nil {
		return Dataset{}, err
	}

	ranks := c.Ranks()
	prefix := "shuffle-" + uuid.NewString()
	parts := make([]PartitionRef, nOut)
	for id, bucket := range buckets {
		addr, err := ranks.Addr(Owner(id, ranks.N()))
		if err != nil {
			return Dataset{}, err
		}
		key := fmt.Sprintf("%s/%d", prefix, id)
		if err := cluster.PutJSON(ctx, addr+"/frames/"+key, bucket); err != nil {
			return Dataset{}, fmt.Errorf("place partition %d on %s: %w", id, addr, err)
		}
		parts[id] = PartitionRef{Addr: addr, Key: key}
	}
	return Dataset{Parts: parts}, nil
}

func deleteFrame(ctx context.Context, p PartitionRef) error {
	return cluster.Delete(ctx, p.Addr+"/frames/"+p.Key)
}
