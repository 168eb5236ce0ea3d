// Package contest defines the baton twirling contest domain shared by the
// scheduler, the score aggregator and the results tabulator.
//
// Entities mirror the Entity Store records (participants, coaches, contests,
// judges, events, registrations, scores, results). Identifiers are opaque
// int64 values assigned by the store; nothing in this package invents them.
//
// # Exact arithmetic
//
// Scores and penalties are Points, an exact decimal backed by apd. A penalty
// of 0.1 applied three times is exactly 0.3, so a materialized final score
// read back from the store always compares equal to a recomputed one.
//
// # Lane cells
//
// A lane of the running order holds exactly one Cell variant: Contestant,
// DivisionHeader, LunchBreak or Empty. Invalid combinations (a contestant
// that is also a header, a lunch break in only some lanes) cannot be built
// through NewPosition or NewLunchPosition.
package contest
