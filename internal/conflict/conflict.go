// Package conflict evaluates a running order for scheduling conflicts.
//
// Every check is a pure function over placements and slots; nothing here
// reads the store or mutates its input. The scheduler calls the checks
// while it places divisions and once more over the finished running order.
package conflict

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/batonset/internal/contest"
)

// Type names the kind of conflict.
type Type string

const (
	CoachStudentType Type = "coach_student"
	RestTimeType     Type = "rest_time"
	DoubleEntryType  Type = "double_entry"
)

// Severity decides whether the scheduler must try to remediate.
type Severity string

const (
	// Critical findings block a placement until remediation runs out.
	Critical Severity = "critical"
	// Warning findings are flagged for a human to override.
	Warning Severity = "warning"
)

// Ref addresses one lane cell of the running order.
type Ref struct {
	Position int `json:"position"`
	Lane     int `json:"lane"`
}

// Conflict is a transient finding. Only the has-conflict flag of the
// implicated cells is ever persisted.
type Conflict struct {
	Type          Type     `json:"type"`
	Severity      Severity `json:"severity"`
	Division      string   `json:"division,omitempty"`
	ParticipantID int64    `json:"participant_id"`
	JudgeID       int64    `json:"judge_id,omitempty"`
	Cells         []Ref    `json:"cells"`
	Message       string   `json:"message"`
	Suggestion    string   `json:"suggestion,omitempty"`
}

// Slot is one contestant appearance in the running order.
type Slot struct {
	Position      int
	Lane          int
	ParticipantID int64
	EventID       int64
	Division      string
}

// Placement is a division placed in a lane: the header cell followed by
// one slot per contestant.
type Placement struct {
	Lane           int
	JudgeID        int64
	Division       contest.Division
	HeaderPosition int
	Slots          []Slot
}

// Rules carries the contest configuration the checks read.
type Rules struct {
	MinRest      int
	CriticalRest int
	StudioStrict bool
}

// CoachStudent flags every contestant of the placed division who is
// coached by the lane's judge. With studioStrict, a contestant from the
// judge's own studio is flagged as well. Both findings are critical.
func CoachStudent(p Placement, roster *contest.Roster, studioStrict bool) []Conflict {
	judge, ok := roster.Judge(p.JudgeID)
	if !ok || judge.CoachID == 0 {
		return nil
	}
	var judgeStudio string
	if coach, ok := roster.Coach(judge.CoachID); ok {
		judgeStudio = normalizeStudio(coach.Studio)
	}

	var out []Conflict
	for _, slot := range p.Slots {
		participant, ok := roster.Participant(slot.ParticipantID)
		if !ok {
			continue
		}
		cells := []Ref{{Position: p.HeaderPosition, Lane: p.Lane}, {Position: slot.Position, Lane: p.Lane}}

		if participant.CoachID != 0 && participant.CoachID == judge.CoachID {
			out = append(out, Conflict{
				Type:          CoachStudentType,
				Severity:      Critical,
				Division:      p.Division.Name(),
				ParticipantID: participant.ID,
				JudgeID:       judge.ID,
				Cells:         cells,
				Message: fmt.Sprintf("judge %s coaches %s in %s",
					judge.DisplayName(), participant.DisplayName(), p.Division.Name()),
				Suggestion: fmt.Sprintf("assign a different judge to lane %d or move the division to another lane", p.Lane),
			})
			continue
		}

		if !studioStrict || judgeStudio == "" {
			continue
		}
		if studioOf(participant, roster) == judgeStudio {
			out = append(out, Conflict{
				Type:          CoachStudentType,
				Severity:      Critical,
				Division:      p.Division.Name(),
				ParticipantID: participant.ID,
				JudgeID:       judge.ID,
				Cells:         cells,
				Message: fmt.Sprintf("judge %s is from the same studio as %s",
					judge.DisplayName(), participant.DisplayName()),
				Suggestion: fmt.Sprintf("assign a judge from another studio to lane %d", p.Lane),
			})
		}
	}
	return out
}

// studioOf returns a participant's studio, falling back to their coach's.
func studioOf(p contest.Participant, roster *contest.Roster) string {
	if p.Studio != "" {
		return normalizeStudio(p.Studio)
	}
	if c, ok := roster.Coach(p.CoachID); ok {
		return normalizeStudio(c.Studio)
	}
	return ""
}

// normalizeStudio folds case and composes to NFC after collapsing spaces;
// "Étoile" and "ÉTOILE  " compare equal.
func normalizeStudio(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(norm.NFC.String(s))
}

// RestTime compares consecutive appearances of each contestant. The rest
// between positions p < q is the number of queue rows between them,
// q - p - 1. Fewer than criticalRest rows is critical; fewer than minRest is
// a warning. Appearances at the same position are left to DoubleEntry.
func RestTime(slots []Slot, minRest, criticalRest int) []Conflict {
	var out []Conflict
	for pid, appearances := range byParticipant(slots) {
		for i := 1; i < len(appearances); i++ {
			prev, cur := appearances[i-1], appearances[i]
			if prev.Position == cur.Position {
				continue
			}
			gap := cur.Position - prev.Position - 1
			var sev Severity
			switch {
			case gap < criticalRest:
				sev = Critical
			case gap < minRest:
				sev = Warning
			default:
				continue
			}
			out = append(out, Conflict{
				Type:          RestTimeType,
				Severity:      sev,
				Division:      cur.Division,
				ParticipantID: pid,
				Cells:         []Ref{{prev.Position, prev.Lane}, {cur.Position, cur.Lane}},
				Message: fmt.Sprintf("participant %d performs at positions %d and %d with %d rows of rest",
					pid, prev.Position, cur.Position, gap),
				Suggestion: fmt.Sprintf("separate the appearances by at least %d rows", minRest),
			})
		}
	}
	Sort(out)
	return out
}

// DoubleEntry flags a contestant scheduled in more than one lane at the
// same queue position.
func DoubleEntry(slots []Slot) []Conflict {
	var out []Conflict
	for pid, appearances := range byParticipant(slots) {
		for i := 0; i < len(appearances); {
			j := i + 1
			for j < len(appearances) && appearances[j].Position == appearances[i].Position {
				j++
			}
			if j-i > 1 {
				same := appearances[i:j]
				cells := make([]Ref, len(same))
				for k, s := range same {
					cells[k] = Ref{s.Position, s.Lane}
				}
				out = append(out, Conflict{
					Type:          DoubleEntryType,
					Severity:      Critical,
					Division:      same[len(same)-1].Division,
					ParticipantID: pid,
					Cells:         cells,
					Message: fmt.Sprintf("participant %d is scheduled in %d lanes at position %d",
						pid, len(same), same[0].Position),
					Suggestion: "move one of the divisions to another lane or a later position",
				})
			}
			i = j
		}
	}
	Sort(out)
	return out
}

// byParticipant groups slots per contestant, each group ordered by
// position then lane.
func byParticipant(slots []Slot) map[int64][]Slot {
	groups := make(map[int64][]Slot)
	for _, s := range slots {
		groups[s.ParticipantID] = append(groups[s.ParticipantID], s)
	}
	for _, g := range groups {
		slices.SortFunc(g, func(a, b Slot) int {
			if c := cmp.Compare(a.Position, b.Position); c != 0 {
				return c
			}
			return cmp.Compare(a.Lane, b.Lane)
		})
	}
	return groups
}

// Detect runs every check over the placements and returns the findings in
// a deterministic order.
func Detect(placements []Placement, roster *contest.Roster, rules Rules) []Conflict {
	var out []Conflict
	var slots []Slot
	for _, p := range placements {
		out = append(out, CoachStudent(p, roster, rules.StudioStrict)...)
		slots = append(slots, p.Slots...)
	}
	out = append(out, RestTime(slots, rules.MinRest, rules.CriticalRest)...)
	out = append(out, DoubleEntry(slots)...)
	Sort(out)
	return out
}

// Sort orders conflicts by first cell (position, lane), then type, then
// participant.
func Sort(cs []Conflict) {
	slices.SortStableFunc(cs, func(a, b Conflict) int {
		ra, rb := a.first(), b.first()
		if c := cmp.Compare(ra.Position, rb.Position); c != 0 {
			return c
		}
		if c := cmp.Compare(ra.Lane, rb.Lane); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ParticipantID, b.ParticipantID); c != 0 {
			return c
		}
		return cmp.Compare(a.lastPosition(), b.lastPosition())
	})
}

func (c Conflict) first() Ref {
	if len(c.Cells) == 0 {
		return Ref{}
	}
	return c.Cells[0]
}

func (c Conflict) lastPosition() int {
	if len(c.Cells) == 0 {
		return 0
	}
	return c.Cells[len(c.Cells)-1].Position
}

// HasCritical reports whether any conflict is critical.
func HasCritical(cs []Conflict) bool {
	return slices.ContainsFunc(cs, func(c Conflict) bool { return c.Severity == Critical })
}

// CriticalOnly returns the critical conflicts.
func CriticalOnly(cs []Conflict) []Conflict {
	var out []Conflict
	for _, c := range cs {
		if c.Severity == Critical {
			out = append(out, c)
		}
	}
	return out
}
