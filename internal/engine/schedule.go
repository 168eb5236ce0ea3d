package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/batonset/internal/setsystem"
)

// ScheduleResult is one persisted scheduling run.
type ScheduleResult struct {
	ContestID    int64
	GenerationID string
	Revision     int64
	Plan         *setsystem.Plan
}

// Unresolved returns an UnresolvedConflictError when critical conflicts
// survived remediation, nil otherwise.
func (s *ScheduleResult) Unresolved() error {
	left := s.Plan.Unresolved()
	if len(left) == 0 {
		return nil
	}
	return &UnresolvedConflictError{ContestID: s.ContestID, Conflicts: left}
}

// ScheduleContest regenerates a contest's running order and replaces the
// stored one.
//
// The run reads a snapshot, computes the plan and persists it only if the
// contest revision has not moved; otherwise it returns a
// ConcurrentModificationError and the previous running order stays.
// Unresolved critical conflicts do not fail the run; check
// ScheduleResult.Unresolved.
func (r *Runner) ScheduleContest(ctx context.Context, contestID int64) (*ScheduleResult, error) {
	if err := r.rules.Validate(); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(contestKey(contestID))
	defer unlock()

	start := time.Now()
	genID := r.gen.Generate()
	log := r.logger.With(zap.Int64("contest", contestID), zap.String("generation", genID))

	snap, err := r.store.Snapshot(ctx, contestID)
	if err != nil {
		return nil, storeErr("snapshot", err)
	}
	in, err := setsystem.InputFromSnapshot(snap, r.rules)
	if err != nil {
		return nil, err
	}
	plan, err := setsystem.Schedule(in)
	if err != nil {
		return nil, err
	}

	if err := r.store.ReplaceSetSystem(ctx, contestID, snap.Revision(), genID, plan.Positions); err != nil {
		log.Warn("running order not persisted", zap.Error(err))
		return nil, storeErr("replace set system", err)
	}

	if !plan.Balance.Within {
		log.Warn("lane times out of balance",
			zap.Duration("spread", plan.Balance.Spread()),
			zap.Duration("mean", plan.Balance.Mean),
			zap.Float64("tolerance", plan.Balance.Tolerance))
	}
	if plan.LunchSkipped {
		log.Warn("lunch break skipped: no division boundary after the lunch threshold",
			zap.Duration("lunch_after", r.rules.LunchAfter))
	}
	res := &ScheduleResult{ContestID: contestID, GenerationID: genID, Revision: snap.Revision(), Plan: plan}
	if err := res.Unresolved(); err != nil {
		log.Warn("critical conflicts remain", zap.Error(err))
	}
	log.Info("running order generated",
		zap.Int64("revision", snap.Revision()),
		zap.Int("divisions", len(in.Divisions)),
		zap.Int("positions", len(plan.Positions)),
		zap.Int("conflicts", len(plan.Conflicts)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
