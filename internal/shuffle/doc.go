// Package shuffle implements the all-to-all exchange protocol and the
// merge built on top of it.
//
// # Exchange
//
// A shuffle is one collective call. The driver builds an ExchangePlan -
// hash columns, output partition count, the placement of every source
// partition, output key naming - and distributes it to every worker
// through comms.Context.Run. The plan is the agreement the protocol's
// correctness rests on: all participants see the same destination ids,
// the same hash parameters, the same owner rule, and the same expected
// contribution count per destination id, fixed before the first bucket
// moves.
//
// Workers then exchange buckets peer-to-peer, bypassing the driver
// entirely: each source partition is hashed, split into one bucket per
// destination id, and every bucket - empty ones included - is sent
// straight to the destination's owner, keyed by (session, sender rank,
// source partition, destination id). Sending empty buckets is what makes
// the barrier countable: a destination id is complete exactly when one
// bucket per global source partition has arrived, no inference needed.
//
// Destination workers assemble arrivals in ascending (sender rank, source
// partition) order, so the same inputs always produce the same output
// partitions. An output id that no row hashed to still materializes as a
// zero-row partition with the input schema.
//
// # Merge
//
// Merge shuffles both relations with the same columns, modulus, and owner
// assignment, which co-locates equal join keys, then runs one local join
// per destination id. The union of the local joins equals a centralized
// join of the full relations, independent of partition counts.
//
// # Failure
//
// There are no retries at this layer. A failed bucket send or a failed
// worker fails the whole collective call, and partially received session
// state is discarded rather than exposed. Cancellation mid-shuffle leaves
// destination partitions unspecified; callers re-shuffle from the source
// dataset if they need to recover.
package shuffle
