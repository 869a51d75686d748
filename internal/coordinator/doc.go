// Package coordinator implements the pool membership service for rowmesh.
//
// # Overview
//
// The coordinator is thin. It answers exactly one question - "which
// workers are in the pool right now?" - and keeps the answer fresh by
// probing worker liveness. It takes no part in shuffles: ranks are
// derived by each caller from a membership snapshot, plans are built by
// drivers, and rows move worker-to-worker without touching the
// coordinator, keeping the data path scheduler-free.
//
// # Components
//
// Registry: registered workers, idempotent registration keyed by worker
// ID, copy-on-read snapshots.
//
// Monitor: periodic /health probes with a consecutive-failure threshold;
// unhealthy workers are reported via callback so the registry can drop
// them before they poison a collective call.
//
// # Failure Handling
//
// The coordinator is a single point of failure for discovery only:
// in-flight collective calls carry their own membership snapshot and keep
// running if the coordinator dies. A restarted coordinator repopulates as
// workers re-register.
package coordinator
