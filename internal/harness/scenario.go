package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/batonset/internal/fixture"
)

// Scenario is one end-to-end contest run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the contest YAML, relative to the scenario file.
	Fixture string `yaml:"fixture"`

	// Ruleset is an optional CUE ruleset, relative to the scenario file.
	// Without one the built-in defaults apply.
	Ruleset string `yaml:"ruleset,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the persisted state after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine call.
type Step struct {
	// Action is one of schedule, score, tabulate, tabulate_contest.
	Action string `yaml:"action"`

	// Event is the fixture event key (tabulate).
	Event string `yaml:"event,omitempty"`

	// Score is the score to record (score).
	Score *fixture.Score `yaml:"score,omitempty"`

	// Expect is the error kind the step must fail with; empty means the
	// step must succeed. One of validation, structural,
	// concurrent_modification, incomplete_scoring, unresolved_conflict.
	Expect string `yaml:"expect,omitempty"`
}

// Step actions.
const (
	ActionSchedule        = "schedule"
	ActionScore           = "score"
	ActionTabulate        = "tabulate"
	ActionTabulateContest = "tabulate_contest"
)

// Assertion validates the state left by the steps.
type Assertion struct {
	// Type is one of conflict, result, positions.
	Type string `yaml:"type"`

	// ConflictType and Severity filter conflicts (conflict).
	ConflictType string `yaml:"conflict_type,omitempty"`
	Severity     string `yaml:"severity,omitempty"`

	// Event and Participant are fixture keys (conflict, result).
	Event       string `yaml:"event,omitempty"`
	Participant string `yaml:"participant,omitempty"`

	// Count is the expected number of conflicts (conflict) or queue
	// positions (positions).
	Count *int `yaml:"count,omitempty"`

	// LunchAt is the expected lunch row (positions); 0 means none.
	LunchAt *int `yaml:"lunch_at,omitempty"`

	// Expected result fields (result). Unset fields are not checked.
	FinalPlacement *int  `yaml:"final_placement,omitempty"`
	PointsSum      *int  `yaml:"points_sum,omitempty"`
	Qualified      *bool `yaml:"qualified,omitempty"`
	Advancement    *bool `yaml:"advancement,omitempty"`
}

// Assertion types.
const (
	AssertConflict  = "conflict"
	AssertResult    = "result"
	AssertPositions = "positions"
)

// LoadScenario reads and parses a scenario YAML file. Fixture and ruleset
// paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(base, scenario.Fixture)
	}
	if scenario.Ruleset != "" && !filepath.IsAbs(scenario.Ruleset) {
		scenario.Ruleset = filepath.Join(base, scenario.Ruleset)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Action {
		case ActionSchedule, ActionTabulateContest:
		case ActionScore:
			if step.Score == nil {
				return fmt.Errorf("step[%d]: score action requires a score", i)
			}
		case ActionTabulate:
			if step.Event == "" {
				return fmt.Errorf("step[%d]: tabulate action requires an event", i)
			}
		default:
			return fmt.Errorf("step[%d]: unknown action %q", i, step.Action)
		}
		if _, ok := expectKinds[step.Expect]; !ok {
			return fmt.Errorf("step[%d]: unknown expect %q", i, step.Expect)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertConflict, AssertPositions:
		case AssertResult:
			if a.Event == "" || a.Participant == "" {
				return fmt.Errorf("assertion[%d]: result requires event and participant", i)
			}
		default:
			return fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}
