package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/batonset/internal/contest"
)

// Snapshot reads everything a scheduling run needs for one contest in a
// single transaction, so the entities and Contest.Revision agree.
func (s *Store) Snapshot(ctx context.Context, contestID int64) (*contest.Snapshot, error) {
	snap := &contest.Snapshot{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Contest, err = getContest(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.Events, err = listEvents(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.Participants, err = listContestParticipants(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.Coaches, err = listCoaches(ctx, tx); err != nil {
			return err
		}
		if snap.Judges, err = listJudges(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.LaneJudges, err = listLaneJudges(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.Registrations, err = listContestRegistrations(ctx, tx, contestID); err != nil {
			return err
		}
		if snap.Statuses, err = listContestStatuses(ctx, tx, contestID); err != nil {
			return err
		}
		snap.Scores, err = listContestScores(ctx, tx, contestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// EventSnapshot reads one event's registrations, scores and registrant
// status in a single transaction, together with the event revision.
func (s *Store) EventSnapshot(ctx context.Context, eventID int64) (*contest.EventSnapshot, error) {
	snap := &contest.EventSnapshot{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Event, snap.Revision, err = getEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if snap.Contest, err = getContest(ctx, tx, snap.Event.ContestID); err != nil {
			return err
		}
		if snap.Registrations, err = listRegistrations(ctx, tx, eventID); err != nil {
			return err
		}
		if snap.Scores, err = listScores(ctx, tx, eventID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT id, participant_id, event_type, status_level, wins
			FROM participant_status
			WHERE event_type = ?
			  AND participant_id IN (SELECT participant_id FROM registrations WHERE event_id = ?)
			ORDER BY participant_id ASC
		`, string(snap.Event.Type), eventID)
		if err != nil {
			return fmt.Errorf("query participant status: %w", err)
		}
		snap.Statuses, err = collect(rows, "participant status", scanStatus)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
