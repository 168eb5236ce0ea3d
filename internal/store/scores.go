package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
)

// UpsertScore records one judge's score of one participant, replacing an
// earlier score for the same (event, participant, judge). Penalty totals
// and the final score are computed with w before writing. A changed score
// loses its previous per-judge placement until the event is tabulated
// again.
//
// The judge must belong to the event's contest and the participant must be
// registered in the event.
func (s *Store) UpsertScore(ctx context.Context, sc contest.Score, w scoring.Weights) (int64, error) {
	if err := scoring.ValidateCounts(sc.Penalties); err != nil {
		return 0, err
	}
	sc = scoring.Apply(sc, w)

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkScoreRefs(ctx, tx, sc); err != nil {
			return err
		}
		p := sc.Penalties
		err := tx.QueryRowContext(ctx, `
			INSERT INTO scores (event_id, participant_id, judge_id, raw_score,
			                    drops, two_hand, falls, breaks, time_seconds, no_salute, improper_salute,
			                    total_penalties, final_score, flagged, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(event_id, participant_id, judge_id) DO UPDATE SET
				raw_score = excluded.raw_score,
				drops = excluded.drops,
				two_hand = excluded.two_hand,
				falls = excluded.falls,
				breaks = excluded.breaks,
				time_seconds = excluded.time_seconds,
				no_salute = excluded.no_salute,
				improper_salute = excluded.improper_salute,
				total_penalties = excluded.total_penalties,
				final_score = excluded.final_score,
				placement_for_this_judge = NULL,
				flagged = excluded.flagged,
				notes = excluded.notes
			RETURNING id
		`, sc.EventID, sc.ParticipantID, sc.JudgeID, sc.Raw.String(),
			p.Drops, p.TwoHand, p.Falls, p.Breaks, p.TimeSeconds, p.NoSalute, p.ImproperSalute,
			sc.TotalPenalties.String(), sc.FinalScore.String(), boolInt(sc.Flagged), sc.Notes).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert score: %w", err)
		}
		return nil
	})
	return id, err
}

func checkScoreRefs(ctx context.Context, tx *sql.Tx, sc contest.Score) error {
	var eventContest int64
	err := tx.QueryRowContext(ctx, `SELECT contest_id FROM events WHERE id = ?`, sc.EventID).Scan(&eventContest)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("event %d: %w", sc.EventID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check score event: %w", err)
	}

	var judgeContest int64
	err = tx.QueryRowContext(ctx, `SELECT contest_id FROM judges WHERE id = ?`, sc.JudgeID).Scan(&judgeContest)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("judge %d: %w", sc.JudgeID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check score judge: %w", err)
	}
	if judgeContest != eventContest {
		return contest.NewValidationError("judge_id",
			fmt.Sprintf("judge %d does not judge contest %d", sc.JudgeID, eventContest))
	}

	var registered int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE event_id = ? AND participant_id = ?
	`, sc.EventID, sc.ParticipantID).Scan(&registered)
	if err != nil {
		return fmt.Errorf("check score registration: %w", err)
	}
	if registered == 0 {
		return contest.NewValidationError("participant_id",
			fmt.Sprintf("participant %d is not registered in event %d", sc.ParticipantID, sc.EventID))
	}
	return nil
}

func scanScore(sc scanner) (contest.Score, error) {
	var s contest.Score
	var raw, total, final string
	var placement sql.NullInt64
	var flagged int
	p := &s.Penalties
	err := sc.Scan(&s.ID, &s.EventID, &s.ParticipantID, &s.JudgeID, &raw,
		&p.Drops, &p.TwoHand, &p.Falls, &p.Breaks, &p.TimeSeconds, &p.NoSalute, &p.ImproperSalute,
		&total, &final, &placement, &flagged, &s.Notes)
	if err != nil {
		return contest.Score{}, err
	}
	if s.Raw, err = contest.ParsePoints(raw); err != nil {
		return contest.Score{}, err
	}
	if s.TotalPenalties, err = contest.ParsePoints(total); err != nil {
		return contest.Score{}, err
	}
	if s.FinalScore, err = contest.ParsePoints(final); err != nil {
		return contest.Score{}, err
	}
	s.PlacementForJudge = int(placement.Int64)
	s.Flagged = flagged == 1
	return s, nil
}

const scoreColumns = `s.id, s.event_id, s.participant_id, s.judge_id, s.raw_score,
	s.drops, s.two_hand, s.falls, s.breaks, s.time_seconds, s.no_salute, s.improper_salute,
	s.total_penalties, s.final_score, s.placement_for_this_judge, s.flagged, s.notes`

// ListScores returns an event's scores ordered by judge, then participant.
func (s *Store) ListScores(ctx context.Context, eventID int64) ([]contest.Score, error) {
	return listScores(ctx, s.db, eventID)
}

func listScores(ctx context.Context, q querier, eventID int64) ([]contest.Score, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+scoreColumns+` FROM scores s
		WHERE s.event_id = ?
		ORDER BY s.judge_id ASC, s.participant_id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	return collect(rows, "scores", scanScore)
}

func listContestScores(ctx context.Context, q querier, contestID int64) ([]contest.Score, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+scoreColumns+` FROM scores s
		JOIN events e ON e.id = s.event_id
		WHERE e.contest_id = ?
		ORDER BY s.event_id ASC, s.judge_id ASC, s.participant_id ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	return collect(rows, "scores", scanScore)
}

// WriteScorePlacement stores one judge's rank for one score. It does not
// move any data revision.
func (s *Store) WriteScorePlacement(ctx context.Context, scoreID int64, rank int) error {
	return writePlacement(ctx, s.db, scoring.Placement{ScoreID: scoreID, Rank: rank})
}

func writePlacement(ctx context.Context, q querier, p scoring.Placement) error {
	if p.Rank < 1 {
		return contest.NewValidationError("placement_for_this_judge",
			fmt.Sprintf("rank must be positive, got %d", p.Rank))
	}
	res, err := q.ExecContext(ctx, `UPDATE scores SET placement_for_this_judge = ? WHERE id = ?`, p.Rank, p.ScoreID)
	if err != nil {
		return fmt.Errorf("write placement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write placement: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("score %d: %w", p.ScoreID, ErrNotFound)
	}
	return nil
}
