// Package store provides SQLite-backed durable storage for contests.
//
// The store keeps the contest entities (participants, coaches, contests,
// judges, lane judges, events, participant status, registrations, scores)
// and the two generated artifacts: the set system running order and the
// event results.
//
// # Data Revisions
//
// contests.data_revision and events.data_revision are maintained by
// triggers. The contest revision moves when registrations, events, lane
// judges or participant status change; the event revision moves when the
// event's registrations or score content change. Writing back per-judge
// placements does not move either.
//
// ReplaceSetSystem and ReplaceResults take the revision the run started
// from and compare it inside their transaction. A mismatch aborts the
// replace with a ConcurrentModificationError and leaves the previous rows.
//
// # Atomic Replace
//
// Both replaces delete and insert every row for their scope in one
// transaction; a failure part way leaves the previous rows intact.
//
// # Scores
//
// Raw scores and penalties are authoritative. total_penalties and
// final_score are a read copy computed by scoring.ComputeFinalScore on
// every write. Decimal values are stored as text so they round-trip
// exactly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All list queries carry an ORDER BY so results are deterministic.
package store
