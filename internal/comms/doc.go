// Package comms implements the collective-call substrate of rowmesh:
// rank assignment over a worker pool, remote execution of named ops with
// results collected in rank order, and a multi-worker mutual-exclusion
// lock.
//
// # Ranks
//
// A RankMap assigns each worker address a rank 0..N-1 by lexicographic
// address order. Because the order is total and the snapshot is shared,
// every participant derives the same map independently; ranks are then
// safe to use as routing keys in an exchange. The map is a per-call
// value, never a process-wide registry.
//
// # Collective calls
//
// Context.Run dispatches one registered op to each target worker with a
// typed per-call state (rank, rank-ordered addresses, session id, shared
// args) and suspends until every worker returns or one fails. A failure
// on any worker fails the whole call; worker-side errors propagate
// verbatim, never silently absorbed.
//
// # Locking
//
// MultiLock serializes calls whose worker sets intersect while letting
// disjoint sets run concurrently. It is built from per-worker exclusive
// locks acquired in sorted address order and released in reverse; the
// fixed global order rules out circular waits structurally. A single
// global lock would serialize disjoint work, and per-call locks in
// arbitrary order could deadlock on overlapping sets.
package comms
