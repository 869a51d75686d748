package cluster

import "encoding/json"

// CallState is the per-call state handed to a unit of work on a worker.
// It is built fresh for every collective call; nothing in it outlives the
// call, so a stale pool snapshot can never leak into a later exchange.
type CallState struct {
	// Session identifies the collective call. Peer-to-peer traffic spawned
	// by the call (bucket sends, lock grants) is keyed by it.
	Session string `json:"session"`

	// Rank is this worker's position in the rank map, 0..NWorkers-1.
	Rank int `json:"rank"`

	// Workers lists the full pool's addresses in rank order, so index i is
	// the address of rank i. Every participant receives the same list.
	Workers []string `json:"workers"`

	// Args carries the call's shared arguments, decoded by the op.
	Args json.RawMessage `json:"args,omitempty"`
}

// NWorkers returns the pool size for this call.
func (s *CallState) NWorkers() int { return len(s.Workers) }

// ExecRequest asks a worker to run a registered op with the given state.
type ExecRequest struct {
	Op    string    `json:"op"`
	State CallState `json:"state"`
}

// ExecResponse carries an op's return value back to the caller.
type ExecResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
}

// LockRequest acquires or releases a worker's exclusive lock. Token names
// the holder; release with a non-matching token is rejected.
type LockRequest struct {
	Token string `json:"token"`
}

// BucketSend is the metadata accompanying a shuffled bucket. The receiver
// matches inbound buckets by (Session, SenderRank, SourcePart, DestID);
// the frame payload travels alongside in the same request body.
type BucketSend struct {
	Session    string          `json:"session"`
	SenderRank int             `json:"sender_rank"`
	SourcePart int             `json:"source_part"`
	DestID     int             `json:"dest_id"`
	Frame      json.RawMessage `json:"frame"`
}
