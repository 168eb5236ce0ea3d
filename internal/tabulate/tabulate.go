// Package tabulate turns one event's per-judge placements into final
// standings.
//
// Placement points are golf-style: each judge's rank (1 = best) is summed
// per participant and the lowest sum wins. Equal sums are broken by the
// higher score sum; participants equal on both share a final placement.
// Final placements are dense, so a shared 1st is followed by 2nd.
package tabulate

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/scoring"
)

// Input is one event's tabulation data.
type Input struct {
	Event          contest.Event
	Classification contest.Classification
	Registrations  []contest.Registration
	Scores         []contest.Score

	// PriorWins holds each participant's recorded wins at the event's type,
	// used for advancement. Missing participants have none.
	PriorWins map[int64]int

	Rules ruleset.Ruleset
}

// Outcome is the result of tabulating one event: the scores with
// placements and recomputed final scores, and one Result per participant.
type Outcome struct {
	Scores  []contest.Score  `json:"scores"`
	Results []contest.Result `json:"results"`
}

// CheckComplete verifies that at least one judge scored the event and that
// every judge who scored it scored every registrant.
func CheckComplete(eventID int64, regs []contest.Registration, scores []contest.Score) error {
	if len(regs) == 0 {
		return contest.NewIncompleteScoringError(eventID, "event has no registrations")
	}
	byJudge := make(map[int64]map[int64]bool)
	for _, s := range scores {
		if byJudge[s.JudgeID] == nil {
			byJudge[s.JudgeID] = make(map[int64]bool)
		}
		byJudge[s.JudgeID][s.ParticipantID] = true
	}
	if len(byJudge) == 0 {
		return contest.NewIncompleteScoringError(eventID, "no judge has scored the event")
	}

	judges := make([]int64, 0, len(byJudge))
	for j := range byJudge {
		judges = append(judges, j)
	}
	slices.Sort(judges)

	missing := 0
	details := make(map[string]string)
	for _, j := range judges {
		var absent []int64
		for _, r := range regs {
			if !byJudge[j][r.ParticipantID] {
				absent = append(absent, r.ParticipantID)
			}
		}
		if len(absent) > 0 {
			missing += len(absent)
			details[fmt.Sprintf("judge %d", j)] = fmt.Sprintf("missing participants %v", absent)
		}
	}
	if missing > 0 {
		err := contest.NewIncompleteScoringError(eventID,
			fmt.Sprintf("%d scores missing across %d judges", missing, len(details)))
		err.Details = details
		return err
	}
	return nil
}

// Tabulate ranks every judge's scores, sums them per participant and
// assigns final placements, qualification and advancement.
//
// With RequireCompleteScoring the event must pass CheckComplete first;
// otherwise registrants without any score are left out of the results.
// Scores for participants who are not registered are rejected.
func Tabulate(in Input) (*Outcome, error) {
	if in.Rules.RequireCompleteScoring {
		if err := CheckComplete(in.Event.ID, in.Registrations, in.Scores); err != nil {
			return nil, err
		}
	}
	registered := make(map[int64]bool, len(in.Registrations))
	for _, r := range in.Registrations {
		registered[r.ParticipantID] = true
	}
	for _, s := range in.Scores {
		if s.EventID != in.Event.ID {
			return nil, contest.NewValidationError("scores",
				fmt.Sprintf("score %d belongs to event %d, not %d", s.ID, s.EventID, in.Event.ID))
		}
		if !registered[s.ParticipantID] {
			return nil, &contest.Error{
				Code:    contest.ErrCodeStructural,
				Message: fmt.Sprintf("score %d is for participant %d who is not registered", s.ID, s.ParticipantID),
				EventID: in.Event.ID,
			}
		}
	}

	placed, err := scoring.PlaceEvent(in.Scores, in.Rules.Weights)
	if err != nil {
		return nil, err
	}

	results := standings(in.Event.ID, placed, in.Rules.ScoreSumBasis)

	cutoff := in.Rules.QualifyTopK[in.Classification]
	threshold, advances := in.Rules.AdvancementWins[in.Event.Status]
	for i := range results {
		r := &results[i]
		r.QualifiedForNationals = cutoff > 0 && r.FinalPlacement <= cutoff
		if advances {
			wins := in.PriorWins[r.ParticipantID]
			if r.FinalPlacement == 1 {
				wins++
			}
			r.IsAdvancement = wins >= threshold
		}
	}
	return &Outcome{Scores: placed, Results: results}, nil
}

// standings sums placements and scores per participant and ranks them.
func standings(eventID int64, placed []contest.Score, basis ruleset.ScoreBasis) []contest.Result {
	byParticipant := make(map[int64]*contest.Result)
	var order []int64
	for _, s := range placed {
		r, ok := byParticipant[s.ParticipantID]
		if !ok {
			r = &contest.Result{EventID: eventID, ParticipantID: s.ParticipantID, ScoreSum: contest.IntPoints(0)}
			byParticipant[s.ParticipantID] = r
			order = append(order, s.ParticipantID)
		}
		r.PlacementPointsSum += s.PlacementForJudge
		if basis == ruleset.BasisRaw {
			r.ScoreSum = r.ScoreSum.Add(s.Raw)
		} else {
			r.ScoreSum = r.ScoreSum.Add(s.FinalScore)
		}
	}

	results := make([]contest.Result, 0, len(order))
	for _, pid := range order {
		results = append(results, *byParticipant[pid])
	}
	slices.SortFunc(results, func(a, b contest.Result) int {
		if c := compareStanding(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})

	place := 0
	for i := range results {
		if i == 0 || compareStanding(results[i-1], results[i]) != 0 {
			place++
		}
		results[i].FinalPlacement = place
	}
	return results
}

// compareStanding orders by placement points ascending, then score sum
// descending.
func compareStanding(a, b contest.Result) int {
	if c := cmp.Compare(a.PlacementPointsSum, b.PlacementPointsSum); c != 0 {
		return c
	}
	return b.ScoreSum.Cmp(a.ScoreSum)
}
