// Package themis implements the client-side half of a Percolator-style cross-row,
// cross-table ACID transaction layer built on top of a distributed, row-atomic,
// multi-version key-value store.
//
// A Transaction buffers reads and writes across arbitrarily many rows and tables,
// then commits them atomically via a two-phase prewrite/commit protocol anchored by
// a designated primary column. Coordinator drives that protocol; this package also
// defines the shared data model, the collaborator interfaces it is built against
// (backing-store RPC client, timestamp oracle, lock cleaner, worker registry, wall
// clock), and the ambient stack (errors, logging, retry, stats) used throughout.
//
// Concrete backing stores, timestamp oracles, and lock cleaners are out of scope:
// only the interfaces they must satisfy live here.
package themis

// Timeout model
//
// Oracle and worker-registry calls (Coordinator.Begin's RegisterWorker/GetStartTs,
// Transaction.Commit's GetCommitTs) are bounded by two timers: the caller-provided
// context deadline/cancellation, and a per-call RPCBudget safety cap. The effective
// bound is whichever is tighter; TimedOut normalizes both into a single check (see
// sleep.go's Retry and transaction.go's retryRPC). Themis get/prewrite/commit and cleaner RPCs follow the
// protocol's own hand-bounded at-most-one-retry invariants (§4.2, §4.6) instead,
// which must stay exactly bounded and so are deliberately not routed through Retry.
