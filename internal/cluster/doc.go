// Package cluster holds the wire types and HTTP helpers shared by every
// process in a rowmesh deployment: the coordinator, the workers, and the
// driver.
//
// # Overview
//
// A rowmesh pool is a coordinator plus N worker processes. Workers register
// with the coordinator on startup; the driver asks the coordinator for the
// current membership snapshot and then talks to workers directly. All
// inter-process communication is HTTP/JSON.
//
// # Communication Protocol
//
// Worker Registration (POST /register):
//   - Workers announce their ID and public address to the coordinator
//   - Registration is idempotent; re-registering updates the address
//
// Membership Snapshot (GET /workers):
//   - Returns the current list of registered workers
//   - The driver sorts addresses to derive ranks; the coordinator does not
//     assign ranks itself
//
// Health Checking (GET /health):
//   - Liveness probes from coordinator to workers
//   - Timeout-based failure detection
//
// # HTTP Clients
//
// Two shared clients:
//   - a 5 second timeout client for control-plane calls, where a slow
//     response means something is wrong
//   - an untimed client for calls that hold the request open server-side
//     (op execution, lock grants); these are bounded only by the caller's
//     context deadline
//
// No operation holds locks during network I/O.
package cluster
