package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
	"github.com/roach88/batonset/internal/tabulate"
)

// TabulateResult is one persisted tabulation of one event.
type TabulateResult struct {
	EventID      int64
	GenerationID string
	Revision     int64
	Results      []contest.Result
	Scores       []contest.Score
}

// TabulateEvent recomputes an event's per-judge placements and results and
// replaces the stored ones in one transaction.
//
// The replace is guarded by the event revision: if a score or registration
// of the event changed after the snapshot, nothing is written and a
// ConcurrentModificationError is returned.
func (r *Runner) TabulateEvent(ctx context.Context, eventID int64) (*TabulateResult, error) {
	if err := r.rules.Validate(); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(eventKey(eventID))
	defer unlock()
	return r.tabulateLocked(ctx, eventID)
}

func (r *Runner) tabulateLocked(ctx context.Context, eventID int64) (*TabulateResult, error) {
	genID := r.gen.Generate()
	log := r.logger.With(zap.Int64("event", eventID), zap.String("generation", genID))

	snap, err := r.store.EventSnapshot(ctx, eventID)
	if err != nil {
		return nil, storeErr("event snapshot", err)
	}
	out, err := tabulate.Tabulate(tabulate.Input{
		Event:          snap.Event,
		Classification: snap.Contest.Classification,
		Registrations:  snap.Registrations,
		Scores:         snap.Scores,
		PriorWins:      snap.PriorWins(),
		Rules:          r.rules,
	})
	if err != nil {
		return nil, err
	}

	placements := scoring.Placements(out.Scores)
	if err := r.store.ReplaceResults(ctx, eventID, snap.Revision, genID, placements, out.Results); err != nil {
		log.Warn("results not persisted", zap.Error(err))
		return nil, storeErr("replace results", err)
	}
	for i := range out.Results {
		out.Results[i].GenerationID = genID
	}

	log.Info("event tabulated",
		zap.Int64("revision", snap.Revision),
		zap.Int("participants", len(out.Results)),
		zap.Int("scores", len(out.Scores)))
	return &TabulateResult{
		EventID:      eventID,
		GenerationID: genID,
		Revision:     snap.Revision,
		Results:      out.Results,
		Scores:       out.Scores,
	}, nil
}

// EventOutcome is one event's share of a contest tabulation. Exactly one of
// Result and Incomplete is set.
type EventOutcome struct {
	EventID    int64
	Result     *TabulateResult
	Incomplete error
}

// TabulateContest tabulates every event of a contest concurrently, at most
// the configured concurrency at a time. Events that are not fully scored
// are reported in EventOutcome.Incomplete and do not fail the run; any
// other error cancels the remaining events and is returned.
//
// Outcomes are ordered by event id.
func (r *Runner) TabulateContest(ctx context.Context, contestID int64) ([]EventOutcome, error) {
	if err := r.rules.Validate(); err != nil {
		return nil, err
	}
	events, err := r.store.ListEvents(ctx, contestID)
	if err != nil {
		return nil, storeErr("list events", err)
	}

	outcomes := make([]EventOutcome, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ev := range events {
		g.Go(func() error {
			res, err := r.TabulateEvent(gctx, ev.ID)
			switch {
			case contest.IsIncompleteScoringError(err):
				outcomes[i] = EventOutcome{EventID: ev.ID, Incomplete: err}
				return nil
			case err != nil:
				return err
			}
			outcomes[i] = EventOutcome{EventID: ev.ID, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// RecordResult reports a score write and the re-tabulation it triggered.
type RecordResult struct {
	ScoreID int64

	// Tabulation is set when the event was complete and re-tabulated.
	Tabulation *TabulateResult

	// Superseded is true when another score landed during the
	// re-tabulation. The writer of that score re-tabulates after it, so
	// the stored results still converge on the latest full set.
	Superseded bool
}

// RecordScore upserts a score, then re-tabulates its event if every judge
// has now scored every registrant. An incomplete event is not an error.
func (r *Runner) RecordScore(ctx context.Context, s contest.Score) (*RecordResult, error) {
	if err := r.rules.Validate(); err != nil {
		return nil, err
	}
	id, err := r.store.UpsertScore(ctx, s, r.rules.Weights)
	if err != nil {
		return nil, storeErr("upsert score", err)
	}
	out := &RecordResult{ScoreID: id}

	res, err := r.TabulateEvent(ctx, s.EventID)
	switch {
	case err == nil:
		out.Tabulation = res
	case contest.IsIncompleteScoringError(err):
		r.logger.Debug("event not fully scored", zap.Int64("event", s.EventID), zap.Int64("score", id))
	case contest.IsConcurrentModificationError(err):
		out.Superseded = true
		r.logger.Info("tabulation superseded by a later score", zap.Int64("event", s.EventID))
	default:
		return out, err
	}
	return out, nil
}
