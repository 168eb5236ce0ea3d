package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/batonset/internal/contest"
)

// ReplaceSetSystem swaps a contest's running order for positions in one
// transaction.
//
// expectedRevision is the contest revision the schedule was computed from.
// If the contest has moved on since, nothing is written and a
// ConcurrentModificationError is returned. Any failure part way through
// leaves the previous running order in place.
//
// Rows may be wider or narrower than the contest's num_lanes when the
// ruleset overrides the lane count, but every row must have the same width.
func (s *Store) ReplaceSetSystem(ctx context.Context, contestID, expectedRevision int64, generationID string, positions []contest.Position) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := getContest(ctx, tx, contestID)
		if err != nil {
			return err
		}
		if c.Revision != expectedRevision {
			return contest.NewConcurrentModificationError(contestID, expectedRevision, c.Revision)
		}
		if err := checkPositions(positions); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM set_system_positions WHERE contest_id = ?`, contestID); err != nil {
			return fmt.Errorf("clear set system: %w", err)
		}

		for _, p := range positions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO set_system_positions (contest_id, position_in_queue, is_lunch_break, has_conflict, generation_id, source_revision)
				VALUES (?, ?, ?, ?, ?, ?)
			`, contestID, p.Number, boolInt(p.IsLunchBreak()), boolInt(p.HasConflict()), generationID, expectedRevision)
			if err != nil {
				return fmt.Errorf("insert position %d: %w", p.Number, err)
			}
			for i, cell := range p.Lanes {
				if err := insertCell(ctx, tx, contestID, p.Number, i+1, cell); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// checkPositions requires rows numbered 1..n, all with the same positive
// number of lanes.
func checkPositions(positions []contest.Position) error {
	for i, p := range positions {
		if p.Number != i+1 {
			return contest.NewValidationError("positions",
				fmt.Sprintf("position %d out of sequence, want %d", p.Number, i+1))
		}
		if len(p.Lanes) == 0 {
			return contest.NewValidationError("positions",
				fmt.Sprintf("position %d has no lanes", p.Number))
		}
		if width := len(positions[0].Lanes); len(p.Lanes) != width {
			return contest.NewValidationError("positions",
				fmt.Sprintf("position %d has %d lanes, position 1 has %d", p.Number, len(p.Lanes), width))
		}
	}
	return nil
}

func insertCell(ctx context.Context, tx *sql.Tx, contestID int64, position, lane int, cell contest.Cell) error {
	var participant, event sql.NullInt64
	var division string
	switch v := cell.(type) {
	case contest.Contestant:
		participant, event, division = nullID(v.ParticipantID), nullID(v.EventID), v.Division
	case contest.DivisionHeader:
		event, division = nullID(v.EventID), v.Division
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO set_system_cells (contest_id, position_in_queue, lane, kind, participant_id, event_id, division_name, has_conflict)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, contestID, position, lane, string(cell.Kind()), participant, event, division, boolInt(cell.Conflicted()))
	if err != nil {
		return fmt.Errorf("insert cell %d/%d: %w", position, lane, err)
	}
	return nil
}

// ReadSetSystem loads a contest's persisted running order. A contest that
// has never been scheduled yields a schedule with no positions.
func (s *Store) ReadSetSystem(ctx context.Context, contestID int64) (*contest.Schedule, error) {
	var sched *contest.Schedule
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		sched, err = readSetSystem(ctx, tx, contestID)
		return err
	})
	return sched, err
}

func readSetSystem(ctx context.Context, q querier, contestID int64) (*contest.Schedule, error) {
	if _, err := getContest(ctx, q, contestID); err != nil {
		return nil, err
	}

	sched := &contest.Schedule{ContestID: contestID, Positions: []contest.Position{}}
	rows, err := q.QueryContext(ctx, `
		SELECT position_in_queue, generation_id, source_revision
		FROM set_system_positions WHERE contest_id = ?
		ORDER BY position_in_queue ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	positions, err := collect(rows, "positions", func(sc scanner) (contest.Position, error) {
		var p contest.Position
		err := sc.Scan(&p.Number, &sched.GenerationID, &sched.Revision)
		return p, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT c.position_in_queue, c.kind, c.participant_id, c.event_id, c.division_name, c.has_conflict,
		       COALESCE(p.first_name || ' ' || p.last_name, '')
		FROM set_system_cells c
		LEFT JOIN participants p ON p.id = c.participant_id
		WHERE c.contest_id = ?
		ORDER BY c.position_in_queue ASC, c.lane ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	type row struct {
		position int
		cell     contest.Cell
	}
	cells, err := collect(rows, "cells", func(sc scanner) (row, error) {
		var r row
		var kind, division, name string
		var participant, event sql.NullInt64
		var conflict int
		if err := sc.Scan(&r.position, &kind, &participant, &event, &division, &conflict, &name); err != nil {
			return row{}, err
		}
		switch contest.CellKind(kind) {
		case contest.KindContestant:
			r.cell = contest.Contestant{
				ParticipantID: participant.Int64, EventID: event.Int64,
				Name: name, Division: division, HasConflict: conflict == 1,
			}
		case contest.KindDivisionHeader:
			r.cell = contest.DivisionHeader{Division: division, EventID: event.Int64, HasConflict: conflict == 1}
		case contest.KindLunchBreak:
			r.cell = contest.LunchBreak{}
		default:
			r.cell = contest.Empty{}
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	// Cells arrive in position order, so a single cursor walks both lists.
	i := 0
	for _, c := range cells {
		for i < len(positions) && positions[i].Number < c.position {
			i++
		}
		if i == len(positions) {
			break
		}
		positions[i].Lanes = append(positions[i].Lanes, c.cell)
	}
	sched.Positions = positions
	return sched, nil
}
