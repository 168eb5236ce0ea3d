package harness

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/engine"
	"github.com/roach88/batonset/internal/fixture"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/setsystem"
	"github.com/roach88/batonset/internal/store"
	"github.com/roach88/batonset/internal/testutil"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool

	// Errors lists step and assertion failures.
	Errors []string

	// Steps has one line per executed step.
	Steps []string

	// Schedule is the last successful schedule step, if any.
	Schedule *engine.ScheduleResult

	// Results holds the stored results per fixture event key after the
	// last step.
	Results map[string][]contest.Result

	// Report is the plain-text rendering compared against golden files.
	Report string
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Results: make(map[string][]contest.Result)}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Harness is the state of one scenario run.
type Harness struct {
	runner *engine.Runner
	ids    *fixture.IDs
	file   *fixture.File
	names  map[int64]string
}

// Run executes a scenario against a fresh in-memory store.
//
// Execution flow:
// 1. Load the ruleset and fixture, import the fixture
// 2. Execute steps in order, checking each one's expected error kind
// 3. Read back stored results and evaluate assertions
// 4. Render the report
//
// The returned error is reserved for setup failures; step and assertion
// failures are collected in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	rules := ruleset.Default()
	if scenario.Ruleset != "" {
		var err error
		if rules, err = ruleset.Load(scenario.Ruleset); err != nil {
			return nil, fmt.Errorf("failed to load ruleset: %w", err)
		}
	}
	file, err := fixture.Load(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	ids, err := fixture.Import(ctx, st, file, rules.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to import fixture: %w", err)
	}

	h := &Harness{
		runner: engine.New(st, rules,
			engine.WithGenerator(testutil.NewSequenceGenerator()),
			engine.WithLogger(zap.NewNop())),
		ids:   ids,
		file:  file,
		names: make(map[int64]string),
	}
	participants, err := st.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		h.names[p.ID] = p.DisplayName()
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		line, err := h.executeStep(ctx, step, result)
		if msg := checkExpect(step.Expect, err); msg != "" {
			result.AddError(fmt.Sprintf("step[%d] %s: %s", i, step.Action, msg))
		}
		if err != nil {
			line = fmt.Sprintf("%s: %s", step.Action, errorKind(err))
		}
		result.Steps = append(result.Steps, line)
	}

	for _, ev := range file.Events {
		res, err := st.ListResults(ctx, ids.Event(ev.Key))
		if err != nil {
			return nil, fmt.Errorf("failed to read results for %s: %w", ev.Key, err)
		}
		result.Results[ev.Key] = res
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, ids) {
		result.AddError(msg)
	}

	result.Report = h.report(result)
	return result, nil
}

// executeStep runs one step and returns its report line.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) (string, error) {
	switch step.Action {
	case ActionSchedule:
		res, err := h.runner.ScheduleContest(ctx, h.ids.ContestID)
		if err != nil {
			return "", err
		}
		result.Schedule = res
		line := fmt.Sprintf("schedule %s: %d positions, %d conflicts",
			res.GenerationID, len(res.Plan.Positions), len(res.Plan.Conflicts))
		return line, res.Unresolved()

	case ActionScore:
		sc, err := step.Score.Resolve(h.ids)
		if err != nil {
			return "", err
		}
		rec, err := h.runner.RecordScore(ctx, sc)
		if err != nil {
			return "", err
		}
		state := "pending"
		switch {
		case rec.Superseded:
			state = "superseded"
		case rec.Tabulation != nil:
			state = "tabulated"
		}
		return fmt.Sprintf("score %s/%s by %s = %s: %s",
			step.Score.Event, step.Score.Participant, step.Score.Judge, step.Score.Raw, state), nil

	case ActionTabulate:
		if _, err := h.runner.TabulateEvent(ctx, h.ids.Event(step.Event)); err != nil {
			return "", err
		}
		return fmt.Sprintf("tabulate %s", step.Event), nil

	case ActionTabulateContest:
		outcomes, err := h.runner.TabulateContest(ctx, h.ids.ContestID)
		if err != nil {
			return "", err
		}
		incomplete := 0
		for _, o := range outcomes {
			if o.Incomplete != nil {
				incomplete++
			}
		}
		return fmt.Sprintf("tabulate_contest: %d events, %d incomplete", len(outcomes), incomplete), nil
	}
	return "", fmt.Errorf("unknown action %q", step.Action)
}

// expectKinds maps an expect value to the check for that error kind.
var expectKinds = map[string]func(error) bool{
	"":                        nil,
	"validation":              contest.IsValidationError,
	"structural":              contest.IsStructuralError,
	"concurrent_modification": contest.IsConcurrentModificationError,
	"incomplete_scoring":      contest.IsIncompleteScoringError,
	"unresolved_conflict":     engine.IsUnresolvedConflictError,
}

// checkExpect returns a failure message, or "" when err matches expect.
func checkExpect(expect string, err error) string {
	if expect == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s error, got success", expect)
	}
	if !expectKinds[expect](err) {
		return fmt.Sprintf("expected %s error, got: %v", expect, err)
	}
	return ""
}

// errorKind names err by the first matching expect kind.
func errorKind(err error) string {
	for _, kind := range []string{"validation", "structural", "concurrent_modification",
		"incomplete_scoring", "unresolved_conflict"} {
		if expectKinds[kind](err) {
			return kind
		}
	}
	return "error"
}

// report renders the steps, the last running order, its conflicts and the
// stored results of every event.
func (h *Harness) report(result *Result) string {
	var b strings.Builder

	b.WriteString("== steps ==\n")
	for _, line := range result.Steps {
		fmt.Fprintf(&b, "%s\n", line)
	}

	if s := result.Schedule; s != nil {
		fmt.Fprintf(&b, "\n== running order %s ==\n", s.GenerationID)
		b.WriteString(setsystem.Render(s.Plan.Positions, s.Plan.Lanes))

		b.WriteString("\n== conflicts ==\n")
		if len(s.Plan.Conflicts) == 0 {
			b.WriteString("none\n")
		}
		for _, c := range s.Plan.Conflicts {
			fmt.Fprintf(&b, "%s %s: %s\n", c.Severity, c.Type, c.Message)
		}
	}

	for _, ev := range h.file.Events {
		name := fmt.Sprintf("%s - %s - %s", ev.Type, ev.Status, ev.Age)
		fmt.Fprintf(&b, "\n== results %s ==\n", name)
		results := result.Results[ev.Key]
		if len(results) == 0 {
			b.WriteString("none\n")
		}
		for _, r := range results {
			fmt.Fprintf(&b, "%d. %s points=%d sum=%s", r.FinalPlacement, h.names[r.ParticipantID],
				r.PlacementPointsSum, r.ScoreSum)
			if r.QualifiedForNationals {
				b.WriteString(" qualified")
			}
			if r.IsAdvancement {
				b.WriteString(" advancement")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
