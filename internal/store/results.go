package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
)

// ReplaceResults writes an event's per-judge placements and swaps its
// results in one transaction.
//
// expectedRevision is the event revision the tabulation read. If scores or
// registrations of the event changed since, nothing is written and a
// ConcurrentModificationError is returned.
func (s *Store) ReplaceResults(ctx context.Context, eventID, expectedRevision int64, generationID string,
	placements []scoring.Placement, results []contest.Result) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		e, rev, err := getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if rev != expectedRevision {
			cerr := contest.NewConcurrentModificationError(e.ContestID, expectedRevision, rev)
			cerr.EventID = eventID
			return cerr
		}

		for _, p := range placements {
			if err := writePlacement(ctx, tx, p); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("clear results: %w", err)
		}
		for _, r := range results {
			if r.EventID != eventID {
				return contest.NewValidationError("results",
					fmt.Sprintf("result for event %d written to event %d", r.EventID, eventID))
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO results (event_id, participant_id, placement_points_sum, raw_score_sum,
				                     final_placement, qualified_for_nationals, is_advancement, generation_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, eventID, r.ParticipantID, r.PlacementPointsSum, r.ScoreSum.String(),
				r.FinalPlacement, boolInt(r.QualifiedForNationals), boolInt(r.IsAdvancement), generationID)
			if err != nil {
				return fmt.Errorf("insert result for participant %d: %w", r.ParticipantID, err)
			}
		}
		return nil
	})
}

// ListResults returns an event's results ordered by final placement, then
// participant id.
func (s *Store) ListResults(ctx context.Context, eventID int64) ([]contest.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, participant_id, placement_points_sum, raw_score_sum,
		       final_placement, qualified_for_nationals, is_advancement, generation_id
		FROM results WHERE event_id = ?
		ORDER BY final_placement ASC, participant_id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return collect(rows, "results", func(sc scanner) (contest.Result, error) {
		var r contest.Result
		var sum string
		var qualified, advancement int
		err := sc.Scan(&r.ID, &r.EventID, &r.ParticipantID, &r.PlacementPointsSum, &sum,
			&r.FinalPlacement, &qualified, &advancement, &r.GenerationID)
		if err != nil {
			return contest.Result{}, err
		}
		if r.ScoreSum, err = contest.ParsePoints(sum); err != nil {
			return contest.Result{}, err
		}
		r.QualifiedForNationals, r.IsAdvancement = qualified == 1, advancement == 1
		return r, nil
	})
}
