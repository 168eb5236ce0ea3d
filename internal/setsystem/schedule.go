package setsystem

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/batonset/internal/conflict"
	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
)

// Input is everything one scheduling run reads.
type Input struct {
	ContestID  int64
	Divisions  []contest.Division
	Lanes      int
	LaneJudges []contest.LaneJudge
	Roster     *contest.Roster
	Rules      ruleset.Ruleset
}

// InputFromSnapshot builds the divisions of a snapshot and resolves the
// lane count, returning a ready Input.
func InputFromSnapshot(snap *contest.Snapshot, rules ruleset.Ruleset) (Input, error) {
	lanes, err := rules.LanesFor(snap.Contest)
	if err != nil {
		return Input{}, err
	}
	divs, err := BuildDivisions(snap, rules)
	if err != nil {
		return Input{}, err
	}
	return Input{
		ContestID:  snap.Contest.ID,
		Divisions:  divs,
		Lanes:      lanes,
		LaneJudges: snap.LaneJudges,
		Roster:     contest.NewRoster(snap),
		Rules:      rules,
	}, nil
}

// LaneAssignment is one lane's ordered divisions, its judge and its
// cumulative estimated time.
type LaneAssignment struct {
	Lane      int           `json:"lane"`
	JudgeID   int64         `json:"judge_id,omitempty"`
	JudgeName string        `json:"judge_name,omitempty"`
	Divisions []string      `json:"divisions"`
	Total     time.Duration `json:"total"`
}

// Balance compares lane totals across the judged lanes.
type Balance struct {
	Min       time.Duration `json:"min"`
	Max       time.Duration `json:"max"`
	Mean      time.Duration `json:"mean"`
	Tolerance float64       `json:"tolerance"`
	Within    bool          `json:"within"`
}

// Spread is the difference between the longest and shortest lane.
func (b Balance) Spread() time.Duration { return b.Max - b.Min }

// Plan is the outcome of one scheduling run.
type Plan struct {
	Positions []contest.Position  `json:"positions"`
	Lanes     []LaneAssignment    `json:"lanes"`
	Conflicts []conflict.Conflict `json:"conflicts"`
	Balance   Balance             `json:"balance"`

	// LunchSkipped is set when LunchAfter was reached with rows still to
	// come but no later row started a division in every busy lane, so no
	// lunch row could be placed without splitting a division.
	LunchSkipped bool `json:"lunch_skipped,omitempty"`
}

// Unresolved returns the critical conflicts that survived remediation.
func (p *Plan) Unresolved() []conflict.Conflict {
	return conflict.CriticalOnly(p.Conflicts)
}

type laneCell struct {
	cell     contest.Cell
	duration time.Duration
}

type placedDivision struct {
	div    contest.Division
	header int // index of the header in lane.cells
}

type lane struct {
	number  int
	judgeID int64
	cells   []laneCell
	placed  []placedDivision
	total   time.Duration
}

// Schedule assigns divisions to lanes and emits the running order.
//
// Divisions are taken longest first (ties by name, then event id) and each
// goes to the least-loaded judged lane, lowest lane number first. When the
// tentative placement has a critical conflict, up to MaxSwapAttempts
// next-least-loaded lanes are tried and the first clean one wins; if none
// is clean the original lane is kept and the cells are flagged. Unresolved
// conflicts never fail the run.
//
// Lanes are then synchronized row by row; a row lasts as long as its
// longest cell. Once the cumulative time reaches LunchAfter, a single lunch
// row goes before the next row at which every lane either starts a division
// or has run out of cells, so no division is split by the break. If no such
// row follows, the plan has no lunch row and LunchSkipped is set.
//
// Schedule is pure: identical input yields an identical Plan.
func Schedule(in Input) (*Plan, error) {
	if in.Lanes <= 0 {
		return nil, &contest.Error{
			Code:      contest.ErrCodeValidation,
			Field:     "lanes",
			Message:   fmt.Sprintf("lane count must be positive, got %d", in.Lanes),
			ContestID: in.ContestID,
		}
	}
	roster := in.Roster
	if roster == nil {
		roster = contest.NewRoster(&contest.Snapshot{})
	}
	rules := conflict.Rules{
		MinRest:      in.Rules.MinRestPositions,
		CriticalRest: in.Rules.CriticalRestPositions,
		StudioStrict: in.Rules.StudioStrict,
	}

	lanes := make([]*lane, in.Lanes)
	for i := range lanes {
		lanes[i] = &lane{number: i + 1}
	}
	judges := slices.Clone(in.LaneJudges)
	slices.SortFunc(judges, func(a, b contest.LaneJudge) int {
		if c := cmp.Compare(a.Lane, b.Lane); c != 0 {
			return c
		}
		return cmp.Compare(a.JudgeID, b.JudgeID)
	})
	var judged []*lane
	for _, lj := range judges {
		if lj.Lane < 1 || lj.Lane > in.Lanes {
			continue
		}
		if _, ok := roster.Judge(lj.JudgeID); !ok {
			continue
		}
		l := lanes[lj.Lane-1]
		if l.judgeID == 0 {
			l.judgeID = lj.JudgeID
			judged = append(judged, l)
		}
	}

	if len(in.Divisions) > 0 && len(judged) == 0 {
		details := make(map[string]string, len(in.Divisions))
		for _, d := range in.Divisions {
			details[d.Name()] = fmt.Sprintf("%d contestants, no judged lane", len(d.Entries))
		}
		return nil, contest.NewStructuralError(in.ContestID, "no eligible judge for any lane", details)
	}

	divs := slices.Clone(in.Divisions)
	slices.SortStableFunc(divs, func(a, b contest.Division) int {
		if c := cmp.Compare(b.Estimated(), a.Estimated()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(a.PrimaryEventID(), b.PrimaryEventID())
	})

	for _, d := range divs {
		order := slices.Clone(judged)
		slices.SortStableFunc(order, func(a, b *lane) int {
			if c := cmp.Compare(a.total, b.total); c != 0 {
				return c
			}
			return cmp.Compare(a.number, b.number)
		})

		chosen := order[0]
		if hasTentativeCritical(chosen, d, lanes, roster, rules) {
			limit := min(len(order), 1+in.Rules.MaxSwapAttempts)
			for _, alt := range order[1:limit] {
				if !hasTentativeCritical(alt, d, lanes, roster, rules) {
					chosen = alt
					break
				}
			}
		}
		chosen.place(d, roster)
	}

	positions, posOf, lunchSkipped, err := expand(lanes, in.Rules.LunchAfter)
	if err != nil {
		return nil, err
	}

	var placements []conflict.Placement
	for _, l := range lanes {
		for _, pd := range l.placed {
			placements = append(placements, placementAt(l, pd.div, func(idx int) int { return posOf[l.number-1][idx] }, pd.header))
		}
	}
	conflicts := conflict.Detect(placements, roster, rules)
	flag(positions, conflicts)

	return &Plan{
		Positions: positions,
		Lanes:     assignments(lanes, roster),
		Conflicts: conflicts,
		Balance:      balance(judged, in.Rules.BalanceTolerance),
		LunchSkipped: lunchSkipped,
	}, nil
}

func (l *lane) place(d contest.Division, roster *contest.Roster) {
	l.placed = append(l.placed, placedDivision{div: d, header: len(l.cells)})
	l.cells = append(l.cells, laneCell{
		cell:     contest.DivisionHeader{Division: d.Name(), EventID: d.PrimaryEventID()},
		duration: d.Overhead,
	})
	for _, e := range d.Entries {
		l.cells = append(l.cells, laneCell{
			cell: contest.Contestant{
				ParticipantID: e.ParticipantID,
				EventID:       e.EventID,
				Name:          roster.ParticipantName(e.ParticipantID),
				Division:      d.Name(),
			},
			duration: e.Duration,
		})
	}
	l.total += d.Estimated()
}

// placementAt describes division d in lane l with its header at cell index
// header; pos maps a cell index to its queue position.
func placementAt(l *lane, d contest.Division, pos func(int) int, header int) conflict.Placement {
	p := conflict.Placement{
		Lane:           l.number,
		JudgeID:        l.judgeID,
		Division:       d,
		HeaderPosition: pos(header),
	}
	for k, e := range d.Entries {
		p.Slots = append(p.Slots, conflict.Slot{
			Position:      pos(header + 1 + k),
			Lane:          l.number,
			ParticipantID: e.ParticipantID,
			EventID:       e.EventID,
			Division:      d.Name(),
		})
	}
	return p
}

// hasTentativeCritical reports whether placing d at the end of candidate
// produces a critical conflict involving d's cells. Before rows are
// synchronized a cell's queue position is its index in the lane plus one.
func hasTentativeCritical(candidate *lane, d contest.Division, lanes []*lane, roster *contest.Roster, rules conflict.Rules) bool {
	rowOf := func(idx int) int { return idx + 1 }
	tentative := placementAt(candidate, d, rowOf, len(candidate.cells))

	if conflict.HasCritical(conflict.CoachStudent(tentative, roster, rules.StudioStrict)) {
		return true
	}

	slots := slices.Clone(tentative.Slots)
	for _, l := range lanes {
		for _, pd := range l.placed {
			slots = append(slots, placementAt(l, pd.div, rowOf, pd.header).Slots...)
		}
	}
	mine := make(map[conflict.Ref]bool, len(tentative.Slots))
	for _, s := range tentative.Slots {
		mine[conflict.Ref{Position: s.Position, Lane: s.Lane}] = true
	}
	found := append(conflict.RestTime(slots, rules.MinRest, rules.CriticalRest), conflict.DoubleEntry(slots)...)
	for _, c := range found {
		if c.Severity != conflict.Critical {
			continue
		}
		for _, ref := range c.Cells {
			if mine[ref] {
				return true
			}
		}
	}
	return false
}

// expand synchronizes the lanes into positions. posOf[lane-1][idx] is the
// queue position of the lane's idx-th cell. skipped reports a lunch that
// was due but found no division boundary before the last row.
func expand(lanes []*lane, lunchAfter time.Duration) (positions []contest.Position, posOf [][]int, skipped bool, err error) {
	rows := 0
	for _, l := range lanes {
		rows = max(rows, len(l.cells))
	}
	posOf = make([][]int, len(lanes))
	for i, l := range lanes {
		posOf[i] = make([]int, len(l.cells))
	}

	var (
		elapsed   time.Duration
		lunchDue  bool
		lunchDone bool
	)
	for r := 0; r < rows; r++ {
		if lunchDue && !lunchDone && divisionBoundary(lanes, r) {
			positions = append(positions, contest.NewLunchPosition(len(positions)+1, len(lanes)))
			lunchDone = true
		}

		number := len(positions) + 1
		cells := make([]contest.Cell, len(lanes))
		var rowTime time.Duration
		for i, l := range lanes {
			if r >= len(l.cells) {
				cells[i] = contest.Empty{}
				continue
			}
			cells[i] = l.cells[r].cell
			rowTime = max(rowTime, l.cells[r].duration)
			posOf[i][r] = number
		}
		pos, perr := contest.NewPosition(number, cells)
		if perr != nil {
			return nil, nil, false, perr
		}
		positions = append(positions, pos)

		elapsed += rowTime
		if lunchAfter > 0 && elapsed >= lunchAfter && r < rows-1 {
			lunchDue = true
		}
	}
	return positions, posOf, lunchDue && !lunchDone, nil
}

// divisionBoundary reports whether row r starts a division, or is past the
// end, in every lane.
func divisionBoundary(lanes []*lane, r int) bool {
	for _, l := range lanes {
		if r >= len(l.cells) {
			continue
		}
		if _, ok := l.cells[r].cell.(contest.DivisionHeader); !ok {
			return false
		}
	}
	return true
}

// flag marks every cell implicated by a conflict.
func flag(positions []contest.Position, conflicts []conflict.Conflict) {
	for _, c := range conflicts {
		for _, ref := range c.Cells {
			if ref.Position < 1 || ref.Position > len(positions) {
				continue
			}
			row := positions[ref.Position-1]
			if ref.Lane < 1 || ref.Lane > len(row.Lanes) {
				continue
			}
			switch v := row.Lanes[ref.Lane-1].(type) {
			case contest.Contestant:
				v.HasConflict = true
				row.Lanes[ref.Lane-1] = v
			case contest.DivisionHeader:
				v.HasConflict = true
				row.Lanes[ref.Lane-1] = v
			}
		}
	}
}

func assignments(lanes []*lane, roster *contest.Roster) []LaneAssignment {
	out := make([]LaneAssignment, len(lanes))
	for i, l := range lanes {
		a := LaneAssignment{Lane: l.number, JudgeID: l.judgeID, Divisions: []string{}, Total: l.total}
		if j, ok := roster.Judge(l.judgeID); ok {
			a.JudgeName = j.DisplayName()
		}
		for _, pd := range l.placed {
			a.Divisions = append(a.Divisions, pd.div.Name())
		}
		out[i] = a
	}
	return out
}

func balance(judged []*lane, tolerance float64) Balance {
	b := Balance{Tolerance: tolerance, Within: true}
	if len(judged) == 0 {
		return b
	}
	var sum time.Duration
	b.Min = judged[0].total
	for _, l := range judged {
		b.Min = min(b.Min, l.total)
		b.Max = max(b.Max, l.total)
		sum += l.total
	}
	b.Mean = sum / time.Duration(len(judged))
	b.Within = float64(b.Spread()) <= tolerance*float64(b.Mean)
	return b
}
