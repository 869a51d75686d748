// Package worker implements the worker-side runtime of a rowmesh pool.
//
// A Worker is one pool member's state: a registry of named ops that
// collective calls can invoke, a partition store holding the frames the
// worker currently owns, a shuffle inbox implementing the exchange
// barrier, and the worker's exclusive lock. Everything is served over a
// small HTTP/JSON API; cmd/worker wraps a Worker in an http.Server, and
// tests run many of them in-process behind httptest servers.
//
// # Ownership model
//
// Every partition lives in exactly one worker's store at any instant.
// Ownership moves atomically: Take removes a source partition when its
// buckets are produced, and a received bucket belongs to the destination
// worker from the moment the inbox accepts it. Nothing is shared, so the
// only explicit mutual exclusion in the system is the worker Lock, used
// to serialize collective calls whose worker sets overlap.
//
// # Blocking endpoints
//
// /exec and /lock/acquire hold the request open server-side: an op
// suspends at its barrier and a lock grant waits for the previous
// holder. Clients call these with an untimed HTTP client bounded by
// context deadlines.
package worker
