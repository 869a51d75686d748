package shuffle

import (
	"fmt"
)

// PartitionRef names one distributed partition: the worker holding it and
// its key in that worker's store.
type PartitionRef struct {
	Addr string `json:"addr"`
	Key  string `json:"key"`
}

// Dataset is the driver-side handle for a distributed collection of
// partitions. Partition order is meaningful: it defines the global source
// partition indices used as tiebreakers in destination assembly.
type Dataset struct {
	Parts []PartitionRef `json:"parts"`
}

// SourcePart places one global source partition on a rank. The slice
// index in ExchangePlan.Sources is the partition's global index.
type SourcePart struct {
	Rank int    `json:"rank"`
	Key  string `json:"key"`
}

// ExchangePlan is the full agreement for one exchange, distributed to
// every participant before any bucket is sent. All the facts the protocol
// depends on - hash columns, modulus, source placement, output naming -
// live here, so no worker ever has to infer them from traffic. In
// particular the expected number of contributions per destination id is
// fixed by the plan: every source partition sends to every destination
// id, empty buckets included.
type ExchangePlan struct {
	// Columns are the hash key columns; Columns and NOut must be byte-
	// identical on every participant or rows are silently lost or
	// duplicated.
	Columns []string `json:"columns"`

	// NOut is the number of output partitions, which is also the hash
	// modulus.
	NOut int `json:"n_out"`

	// Sources places every global source partition. Order is the global
	// source partition order.
	Sources []SourcePart `json:"sources"`

	// OutPrefix prefixes output partition store keys.
	OutPrefix string `json:"out_prefix"`
}

// Owner returns the rank owning a destination id: destID mod pool size.
// Any fixed rule shared by all participants would do; this one spreads
// outputs round-robin and tolerates NOut above or below the worker count.
func Owner(destID, nWorkers int) int {
	return destID % nWorkers
}

// ExpectedPerDest returns how many contributions each destination id must
// receive before its output partition may be assembled.
func (p *ExchangePlan) ExpectedPerDest() int {
	return len(p.Sources)
}

// OwnedDests returns the destination ids in [0, nOut) owned by the given
// rank, in ascending order.
func OwnedDests(nOut, rank, nWorkers int) []int {
	var dests []int
	for id := 0; id < nOut; id++ {
		if Owner(id, nWorkers) == rank {
			dests = append(dests, id)
		}
	}
	return dests
}

// OutKey returns the store key of an output partition.
func (p *ExchangePlan) OutKey(destID int) string {
	return fmt.Sprintf("%s/%d", p.OutPrefix, destID)
}

// JoinPlan directs the local-join step of a merge: each destination
// worker joins its co-located left and right output partitions.
type JoinPlan struct {
	On          []string `json:"on"`
	NOut        int      `json:"n_out"`
	LeftPrefix  string   `json:"left_prefix"`
	RightPrefix string   `json:"right_prefix"`
	OutPrefix   string   `json:"out_prefix"`
}

// OutKey returns the store key of a joined output partition.
func (p *JoinPlan) OutKey(destID int) string {
	return fmt.Sprintf("%s/%d", p.OutPrefix, destID)
}
