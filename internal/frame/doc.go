// Package frame implements the row container the shuffle engine moves
// between workers: a small columnar table with a fixed schema.
//
// A Frame stores typed columns (int64, float64, string) and supports the
// operations the exchange protocol needs: row count, column access,
// slicing by index or mask, same-schema concatenation, per-row partition
// hashing, bucket splitting, and a local hash equi-join.
//
// Frames marshal to JSON, which is the bucket transmission payload; a
// zero-row frame keeps its schema through a round trip so that empty
// buckets and empty output partitions stay well-formed.
//
// Hashing uses FNV-1a over a canonical, kind-tagged byte encoding of the
// selected column values. The encoding is part of the protocol: every
// worker computes it independently and the bucket ids must agree
// byte-for-byte across the pool.
package frame
