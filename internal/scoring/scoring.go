// Package scoring is the single source of truth for penalty-adjusted
// scores and per-judge placements.
//
// Every place that needs a final score, including the store when it
// materializes a read copy, calls ComputeFinalScore. Nothing else
// reimplements the weight table.
package scoring

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/batonset/internal/contest"
)

// Weights is the penalty weight table. Time is charged per second of
// absolute deviation.
type Weights struct {
	Drop           contest.Points `json:"drop"`
	TwoHand        contest.Points `json:"two_hand"`
	Fall           contest.Points `json:"fall"`
	Break          contest.Points `json:"break"`
	TimePerSecond  contest.Points `json:"time_per_second"`
	NoSalute       contest.Points `json:"no_salute"`
	ImproperSalute contest.Points `json:"improper_salute"`
}

// DefaultWeights returns the standard table: drop 0.5, two-hand 0.5,
// fall 0.5, break 0.1, time 0.1 per second, no salute 1.0, improper
// salute 0.5.
func DefaultWeights() Weights {
	half := contest.NewPoints(5, -1)
	tenth := contest.NewPoints(1, -1)
	return Weights{
		Drop:           half,
		TwoHand:        half,
		Fall:           half,
		Break:          tenth,
		TimePerSecond:  tenth,
		NoSalute:       contest.NewPoints(10, -1),
		ImproperSalute: half,
	}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	named := []struct {
		name string
		p    contest.Points
	}{
		{"drop", w.Drop}, {"two_hand", w.TwoHand}, {"fall", w.Fall}, {"break", w.Break},
		{"time_per_second", w.TimePerSecond}, {"no_salute", w.NoSalute},
		{"improper_salute", w.ImproperSalute},
	}
	for _, n := range named {
		if n.p.Sign() < 0 {
			return contest.NewValidationError("weights."+n.name, "penalty weight must not be negative")
		}
	}
	return nil
}

// ValidateCounts rejects negative tallies. The time deviation is signed and
// is exempt.
func ValidateCounts(c contest.PenaltyCounts) error {
	named := []struct {
		name string
		n    int
	}{
		{"drops", c.Drops}, {"two_hand", c.TwoHand}, {"falls", c.Falls}, {"breaks", c.Breaks},
		{"no_salute", c.NoSalute}, {"improper_salute", c.ImproperSalute},
	}
	for _, f := range named {
		if f.n < 0 {
			return contest.NewValidationError("penalties."+f.name, fmt.Sprintf("count must not be negative, got %d", f.n))
		}
	}
	return nil
}

// TotalPenalties applies the weight table to the counts.
func TotalPenalties(c contest.PenaltyCounts, w Weights) contest.Points {
	timeDev := c.TimeSeconds
	if timeDev < 0 {
		timeDev = -timeDev
	}
	return w.Drop.MulInt(int64(c.Drops)).
		Add(w.TwoHand.MulInt(int64(c.TwoHand))).
		Add(w.Fall.MulInt(int64(c.Falls))).
		Add(w.Break.MulInt(int64(c.Breaks))).
		Add(w.TimePerSecond.MulInt(int64(timeDev))).
		Add(w.NoSalute.MulInt(int64(c.NoSalute))).
		Add(w.ImproperSalute.MulInt(int64(c.ImproperSalute)))
}

// ComputeFinalScore returns the total penalties and raw minus penalties.
// The final score may be negative.
func ComputeFinalScore(raw contest.Points, c contest.PenaltyCounts, w Weights) (total, final contest.Points) {
	total = TotalPenalties(c, w)
	return total, raw.Sub(total)
}

// Apply returns s with TotalPenalties and FinalScore recomputed.
func Apply(s contest.Score, w Weights) contest.Score {
	s.TotalPenalties, s.FinalScore = ComputeFinalScore(s.Raw, s.Penalties, w)
	return s
}

// Placement is one judge's rank of one score.
type Placement struct {
	ScoreID       int64 `json:"score_id"`
	ParticipantID int64 `json:"participant_id"`
	JudgeID       int64 `json:"judge_id"`
	Rank          int   `json:"rank"`
}

// ComputeJudgePlacements ranks all scores one judge gave in one event by
// final score, best first. Ranks are dense: equal final scores share a
// rank and the next lower score gets the next integer (9.0, 9.0, 8.5 ranks
// 1, 1, 2).
//
// The returned scores are copies with PlacementForJudge set, ordered by
// rank then participant id. The input slice is not modified.
func ComputeJudgePlacements(scores []contest.Score) ([]contest.Score, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	judge, event := scores[0].JudgeID, scores[0].EventID
	seen := make(map[int64]bool, len(scores))
	for _, s := range scores {
		if s.JudgeID != judge || s.EventID != event {
			return nil, contest.NewValidationError("scores", "placements are computed per judge and event")
		}
		if seen[s.ParticipantID] {
			return nil, contest.NewValidationError("scores",
				fmt.Sprintf("judge %d scored participant %d twice in event %d", judge, s.ParticipantID, event))
		}
		seen[s.ParticipantID] = true
	}

	ranked := slices.Clone(scores)
	slices.SortStableFunc(ranked, func(a, b contest.Score) int {
		if c := b.FinalScore.Cmp(a.FinalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})

	rank := 0
	for i := range ranked {
		if i == 0 || !ranked[i].FinalScore.Equal(ranked[i-1].FinalScore) {
			rank++
		}
		ranked[i].PlacementForJudge = rank
	}
	return ranked, nil
}

// PlaceEvent recomputes final scores with w and ranks every judge's scores
// for one event. Scores come back grouped by judge id, each group ordered
// as ComputeJudgePlacements orders it.
func PlaceEvent(scores []contest.Score, w Weights) ([]contest.Score, error) {
	byJudge := make(map[int64][]contest.Score)
	var judges []int64
	for _, s := range scores {
		if err := ValidateCounts(s.Penalties); err != nil {
			return nil, err
		}
		if _, ok := byJudge[s.JudgeID]; !ok {
			judges = append(judges, s.JudgeID)
		}
		byJudge[s.JudgeID] = append(byJudge[s.JudgeID], Apply(s, w))
	}
	slices.Sort(judges)

	out := make([]contest.Score, 0, len(scores))
	for _, j := range judges {
		placed, err := ComputeJudgePlacements(byJudge[j])
		if err != nil {
			return nil, err
		}
		out = append(out, placed...)
	}
	return out, nil
}

// Placements extracts the rank of every score.
func Placements(scores []contest.Score) []Placement {
	out := make([]Placement, len(scores))
	for i, s := range scores {
		out[i] = Placement{ScoreID: s.ID, ParticipantID: s.ParticipantID, JudgeID: s.JudgeID, Rank: s.PlacementForJudge}
	}
	return out
}
