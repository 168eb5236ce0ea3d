// Package engine runs scheduling and tabulation against the store.
//
// Every run has the same shape:
//
//  1. Read a snapshot and its data revision in one transaction
//  2. Compute with the pure packages (setsystem, tabulate)
//  3. Persist in one transaction that first checks the revision
//
// A run whose snapshot went stale fails with a ConcurrentModificationError
// and writes nothing. Runs are never retried silently; the caller re-runs.
//
// Runs on one contest (scheduling) or one event (tabulation) are serialized
// by a keyed mutex. Runs on different keys, and score writes, proceed in
// parallel. Every persisted row carries the run's generation id.
package engine
