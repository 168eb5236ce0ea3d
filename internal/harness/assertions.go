package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/fixture"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion, ids *fixture.IDs) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertConflict:
			err = assertConflict(result, a, ids)
		case AssertResult:
			err = assertResult(result, a, ids)
		case AssertPositions:
			err = assertPositions(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}

// assertConflict counts conflicts of the last schedule matching the
// assertion's filters. Without a count at least one must match.
func assertConflict(result *Result, a Assertion, ids *fixture.IDs) error {
	if result.Schedule == nil {
		return &AssertionError{Type: a.Type, Expected: "a schedule", Actual: "no schedule step succeeded"}
	}
	var participant int64
	if a.Participant != "" {
		participant = ids.Participant(a.Participant)
	}

	n := 0
	for _, c := range result.Schedule.Plan.Conflicts {
		if a.ConflictType != "" && string(c.Type) != a.ConflictType {
			continue
		}
		if a.Severity != "" && string(c.Severity) != a.Severity {
			continue
		}
		if participant != 0 && c.ParticipantID != participant {
			continue
		}
		n++
	}

	filter := describeConflict(a)
	if a.Count == nil {
		if n == 0 {
			return &AssertionError{Type: a.Type, Expected: "at least one " + filter, Actual: "none"}
		}
		return nil
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", *a.Count, filter),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func describeConflict(a Assertion) string {
	parts := []string{"conflict"}
	if a.Severity != "" {
		parts = append([]string{a.Severity}, parts...)
	}
	if a.ConflictType != "" {
		parts = append(parts, "of type "+a.ConflictType)
	}
	if a.Participant != "" {
		parts = append(parts, "for "+a.Participant)
	}
	return strings.Join(parts, " ")
}

// assertResult checks the stored result of one participant in one event.
func assertResult(result *Result, a Assertion, ids *fixture.IDs) error {
	pid := ids.Participant(a.Participant)
	var found *contest.Result
	for i, r := range result.Results[a.Event] {
		if r.ParticipantID == pid {
			found = &result.Results[a.Event][i]
			break
		}
	}
	if found == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a result for %s in %s", a.Participant, a.Event),
			Actual:   "none stored",
		}
	}

	var diffs []string
	if a.FinalPlacement != nil && found.FinalPlacement != *a.FinalPlacement {
		diffs = append(diffs, fmt.Sprintf("final_placement %d, want %d", found.FinalPlacement, *a.FinalPlacement))
	}
	if a.PointsSum != nil && found.PlacementPointsSum != *a.PointsSum {
		diffs = append(diffs, fmt.Sprintf("points_sum %d, want %d", found.PlacementPointsSum, *a.PointsSum))
	}
	if a.Qualified != nil && found.QualifiedForNationals != *a.Qualified {
		diffs = append(diffs, fmt.Sprintf("qualified %t, want %t", found.QualifiedForNationals, *a.Qualified))
	}
	if a.Advancement != nil && found.IsAdvancement != *a.Advancement {
		diffs = append(diffs, fmt.Sprintf("advancement %t, want %t", found.IsAdvancement, *a.Advancement))
	}
	if len(diffs) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("result for %s in %s", a.Participant, a.Event),
			Actual:   strings.Join(diffs, "; "),
		}
	}
	return nil
}

// assertPositions checks the row count and lunch row of the last schedule.
func assertPositions(result *Result, a Assertion) error {
	if result.Schedule == nil {
		return &AssertionError{Type: a.Type, Expected: "a schedule", Actual: "no schedule step succeeded"}
	}
	positions := result.Schedule.Plan.Positions
	if a.Count != nil && len(positions) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d positions", *a.Count),
			Actual:   fmt.Sprintf("%d positions", len(positions)),
		}
	}
	if a.LunchAt != nil {
		lunch := 0
		for _, p := range positions {
			if p.IsLunchBreak() {
				lunch = p.Number
				break
			}
		}
		if lunch != *a.LunchAt {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("lunch at position %d", *a.LunchAt),
				Actual:   fmt.Sprintf("lunch at position %d", lunch),
			}
		}
	}
	return nil
}
