// Package ruleset holds the contest-level configuration read by the
// scheduler and the tabulator.
//
// Rules that the governing body leaves to each contest (rest gaps, lunch
// timing, qualification cutoffs, advancement thresholds, penalty weights)
// are never hardcoded in the algorithms; they arrive through a Ruleset.
// Default returns the values used when a contest supplies no file.
package ruleset

import (
	"fmt"
	"time"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
)

// ScoreBasis selects which score feeds a Result's score sum.
type ScoreBasis string

const (
	// BasisFinal sums penalty-adjusted final scores.
	BasisFinal ScoreBasis = "final"
	// BasisRaw sums raw scores before penalties.
	BasisRaw ScoreBasis = "raw"
)

// Ruleset is the configuration surface of the core.
type Ruleset struct {
	// Lanes overrides the contest's lane count when positive.
	Lanes int `json:"lanes"`

	// LunchAfter inserts one lunch-break row once cumulative estimated time
	// reaches it. Zero disables the break.
	LunchAfter time.Duration `json:"lunch_after"`

	// MinRestPositions is the number of other queue rows that must separate
	// two appearances of one contestant. Fewer is a warning.
	MinRestPositions int `json:"min_rest_positions"`

	// CriticalRestPositions escalates a rest-time finding to critical when
	// fewer rows than this separate the appearances.
	CriticalRestPositions int `json:"critical_rest_positions"`

	// MaxSwapAttempts bounds how many alternative lanes the scheduler tries
	// after a critical conflict.
	MaxSwapAttempts int `json:"max_swap_attempts"`

	// BalanceTolerance is the allowed max-min lane time spread as a
	// fraction of the mean lane time.
	BalanceTolerance float64 `json:"balance_tolerance"`

	// DefaultPerformance is the per-contestant time for events without a
	// maximum routine time.
	DefaultPerformance time.Duration `json:"default_performance"`

	// DivisionOverhead is the fixed announcement time per division.
	DivisionOverhead time.Duration `json:"division_overhead"`

	// StudioStrict also treats a judge from a contestant's studio as a
	// coach-student conflict.
	StudioStrict bool `json:"studio_strict"`

	// ScoreSumBasis selects raw or final scores for Result score sums.
	ScoreSumBasis ScoreBasis `json:"score_sum_basis"`

	// RequireCompleteScoring refuses to tabulate an event until every
	// judge who scored it has scored every registrant. When false, only
	// registrants with at least one score are tabulated.
	RequireCompleteScoring bool `json:"require_complete_scoring"`

	// QualifyTopK qualifies final placements 1..K for nationals, per
	// contest classification. Classifications without an entry qualify
	// nobody.
	QualifyTopK map[contest.Classification]int `json:"qualify_top_k"`

	// AdvancementWins is the number of first places at a status level that
	// moves a participant up a level.
	AdvancementWins map[contest.StatusLevel]int `json:"advancement_wins"`

	// Weights is the penalty weight table.
	Weights scoring.Weights `json:"weights"`
}

// Default returns the built-in ruleset.
func Default() Ruleset {
	return Ruleset{
		MinRestPositions:       3,
		CriticalRestPositions:  1,
		MaxSwapAttempts:        3,
		BalanceTolerance:       0.25,
		DefaultPerformance:     2 * time.Minute,
		DivisionOverhead:       time.Minute,
		ScoreSumBasis:          BasisFinal,
		RequireCompleteScoring: true,
		QualifyTopK:            map[contest.Classification]int{},
		AdvancementWins:        map[contest.StatusLevel]int{},
		Weights:                scoring.DefaultWeights(),
	}
}

// Validate rejects malformed configuration before any computation runs.
func (r Ruleset) Validate() error {
	switch {
	case r.Lanes < 0:
		return contest.NewValidationError("lanes", "lane count must not be negative")
	case r.LunchAfter < 0:
		return contest.NewValidationError("lunch_after", "must not be negative")
	case r.MinRestPositions < 0 || r.CriticalRestPositions < 0:
		return contest.NewValidationError("rest_positions", "must not be negative")
	case r.CriticalRestPositions > r.MinRestPositions:
		return contest.NewValidationError("critical_rest_positions",
			fmt.Sprintf("critical gap %d exceeds minimum gap %d", r.CriticalRestPositions, r.MinRestPositions))
	case r.MaxSwapAttempts < 0:
		return contest.NewValidationError("max_swap_attempts", "must not be negative")
	case r.BalanceTolerance < 0:
		return contest.NewValidationError("balance_tolerance", "must not be negative")
	case r.DefaultPerformance <= 0:
		return contest.NewValidationError("default_performance", "must be positive")
	case r.DivisionOverhead < 0:
		return contest.NewValidationError("division_overhead", "must not be negative")
	case r.ScoreSumBasis != BasisFinal && r.ScoreSumBasis != BasisRaw:
		return contest.NewValidationError("score_sum_basis", fmt.Sprintf("unknown basis %q", r.ScoreSumBasis))
	}
	for c, k := range r.QualifyTopK {
		if !c.Valid() {
			return contest.NewValidationError("qualify_top_k", fmt.Sprintf("unknown classification %q", c))
		}
		if k < 0 {
			return contest.NewValidationError("qualify_top_k", fmt.Sprintf("%s cutoff must not be negative", c))
		}
	}
	for s, wins := range r.AdvancementWins {
		if !s.Valid() {
			return contest.NewValidationError("advancement_wins", fmt.Sprintf("unknown status level %q", s))
		}
		if wins <= 0 {
			return contest.NewValidationError("advancement_wins", fmt.Sprintf("%s threshold must be positive", s))
		}
	}
	return r.Weights.Validate()
}

// LanesFor returns the effective lane count for a contest.
func (r Ruleset) LanesFor(c contest.Contest) (int, error) {
	n := c.NumLanes
	if r.Lanes > 0 {
		n = r.Lanes
	}
	if n <= 0 {
		return 0, &contest.Error{
			Code:      contest.ErrCodeValidation,
			Field:     "lanes",
			Message:   fmt.Sprintf("lane count must be positive, got %d", n),
			ContestID: c.ID,
		}
	}
	return n, nil
}

// PerformanceTime is the estimated per-contestant time for an event.
func (r Ruleset) PerformanceTime(e contest.Event) time.Duration {
	if e.TimeMax > 0 {
		return e.TimeMax
	}
	return r.DefaultPerformance
}
