package contest

import "encoding/json"

// CellKind names the variant held by a lane cell.
type CellKind string

const (
	KindContestant     CellKind = "contestant"
	KindDivisionHeader CellKind = "division_header"
	KindLunchBreak     CellKind = "lunch_break"
	KindEmpty          CellKind = "empty"
)

// Cell is the content of one lane at one queue position. The interface is
// sealed; the only implementations are Contestant, DivisionHeader,
// LunchBreak and Empty.
type Cell interface {
	Kind() CellKind
	Conflicted() bool
	isCell()
}

// Contestant is a participant performing in a lane.
type Contestant struct {
	ParticipantID int64  `json:"participant_id"`
	EventID       int64  `json:"event_id"`
	Name          string `json:"name"`
	Division      string `json:"division"`
	HasConflict   bool   `json:"has_conflict"`
}

// DivisionHeader announces the start of a division in a lane.
type DivisionHeader struct {
	Division    string `json:"division"`
	EventID     int64  `json:"event_id"`
	HasConflict bool   `json:"has_conflict"`
}

// LunchBreak marks a lane as paused for the lunch break.
type LunchBreak struct{}

// Empty marks a lane with nothing scheduled at this position.
type Empty struct{}

func (Contestant) Kind() CellKind     { return KindContestant }
func (DivisionHeader) Kind() CellKind { return KindDivisionHeader }
func (LunchBreak) Kind() CellKind     { return KindLunchBreak }
func (Empty) Kind() CellKind          { return KindEmpty }

func (c Contestant) Conflicted() bool     { return c.HasConflict }
func (h DivisionHeader) Conflicted() bool { return h.HasConflict }
func (LunchBreak) Conflicted() bool       { return false }
func (Empty) Conflicted() bool            { return false }

func (Contestant) isCell()     {}
func (DivisionHeader) isCell() {}
func (LunchBreak) isCell()     {}
func (Empty) isCell()          {}

// Position is one row of the running order: a queue index and one cell per
// lane (index 0 is lane 1).
type Position struct {
	Number int    `json:"position"`
	Lanes  []Cell `json:"lanes"`
}

// NewPosition builds a regular row. Lunch breaks are rejected here; use
// NewLunchPosition so a break always spans every lane.
func NewPosition(number int, lanes []Cell) (Position, error) {
	for i, c := range lanes {
		if c == nil {
			lanes[i] = Empty{}
			continue
		}
		if c.Kind() == KindLunchBreak {
			return Position{}, NewValidationError("lanes", "lunch break must span all lanes")
		}
	}
	return Position{Number: number, Lanes: lanes}, nil
}

// NewLunchPosition builds a lunch-break row across numLanes lanes.
func NewLunchPosition(number, numLanes int) Position {
	lanes := make([]Cell, numLanes)
	for i := range lanes {
		lanes[i] = LunchBreak{}
	}
	return Position{Number: number, Lanes: lanes}
}

// IsLunchBreak reports whether the row is a lunch break.
func (p Position) IsLunchBreak() bool {
	return len(p.Lanes) > 0 && p.Lanes[0].Kind() == KindLunchBreak
}

// HasConflict reports whether any lane cell in the row is flagged.
func (p Position) HasConflict() bool {
	for _, c := range p.Lanes {
		if c.Conflicted() {
			return true
		}
	}
	return false
}

// Lane returns the cell for a 1-based lane number, Empty when out of range.
func (p Position) Lane(lane int) Cell {
	if lane < 1 || lane > len(p.Lanes) {
		return Empty{}
	}
	return p.Lanes[lane-1]
}

// MarshalJSON flattens each lane cell into an object tagged with its kind.
func (p Position) MarshalJSON() ([]byte, error) {
	type laneJSON struct {
		Kind          CellKind `json:"kind"`
		ParticipantID int64    `json:"participant_id,omitempty"`
		EventID       int64    `json:"event_id,omitempty"`
		Name          string   `json:"name,omitempty"`
		Division      string   `json:"division,omitempty"`
		HasConflict   bool     `json:"has_conflict,omitempty"`
	}
	lanes := make([]laneJSON, len(p.Lanes))
	for i, c := range p.Lanes {
		l := laneJSON{Kind: c.Kind(), HasConflict: c.Conflicted()}
		switch v := c.(type) {
		case Contestant:
			l.ParticipantID, l.EventID, l.Name, l.Division = v.ParticipantID, v.EventID, v.Name, v.Division
		case DivisionHeader:
			l.EventID, l.Division = v.EventID, v.Division
		}
		lanes[i] = l
	}
	return json.Marshal(struct {
		Number     int        `json:"position"`
		LunchBreak bool       `json:"lunch_break"`
		Lanes      []laneJSON `json:"lanes"`
	}{p.Number, p.IsLunchBreak(), lanes})
}

// Schedule is a persisted running order for a contest.
type Schedule struct {
	ContestID    int64      `json:"contest_id"`
	GenerationID string     `json:"generation_id"`
	Revision     int64      `json:"revision"`
	Positions    []Position `json:"positions"`
}
