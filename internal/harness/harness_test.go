package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/batonset/internal/testutil"
)

func TestRunWithGolden_SpringDay(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/spring_day.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Steps, len(scenario.Steps))
}

func TestRun_NoSwaps(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/no_swaps.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "tabulate: incomplete_scoring", result.Steps[1])
	assert.Empty(t, result.Results["strut-juv"])
}

func TestRun_ReportsUnmetExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expect",
		Description: "schedule succeeds although a structural error is expected",
		Fixture:     testutil.FixturePath("spring.yaml"),
		Steps:       []Step{{Action: ActionSchedule, Expect: "structural"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected structural error, got success")
}

func TestRun_FailedAssertions(t *testing.T) {
	two := 2
	yes := true
	scenario := &Scenario{
		Name:        "failing_assertions",
		Description: "assertions that cannot hold against the sample contest",
		Fixture:     testutil.FixturePath("spring.yaml"),
		Steps:       []Step{{Action: ActionSchedule}},
		Assertions: []Assertion{
			{Type: AssertPositions, Count: &two},
			{Type: AssertConflict, ConflictType: "double_entry"},
			{Type: AssertResult, Event: "solo-juv", Participant: "ann", Qualified: &yes},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: 2 positions")
	assert.Contains(t, result.Errors[1], "at least one conflict of type double_entry")
	assert.Contains(t, result.Errors[2], "none stored")
}

func TestRun_MissingFixture(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Description: "x", Fixture: "does/not/exist.yaml",
		Steps: []Step{{Action: ActionSchedule}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fixture")
}

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/spring_day.yaml")
	require.NoError(t, err)

	assert.Equal(t, "spring_day", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "rules", "spring.cue"), scenario.Ruleset)
	assert.FileExists(t, scenario.Fixture)
	require.NotNil(t, scenario.Steps[1].Score)
	assert.Equal(t, 1, scenario.Steps[1].Score.Penalties.Drops)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\nstpes: []\n",
			wantErr: "field stpes not found",
		},
		{
			name:    "missing name",
			yaml:    "description: x\nfixture: f.yaml\nsteps: [{action: schedule}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing fixture",
			yaml:    "name: x\ndescription: x\nsteps: [{action: schedule}]\n",
			wantErr: "fixture is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown action",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\nsteps: [{action: dance}]\n",
			wantErr: `unknown action "dance"`,
		},
		{
			name:    "score without score",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\nsteps: [{action: score}]\n",
			wantErr: "score action requires a score",
		},
		{
			name:    "tabulate without event",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\nsteps: [{action: tabulate}]\n",
			wantErr: "tabulate action requires an event",
		},
		{
			name:    "unknown expect",
			yaml:    "name: x\ndescription: x\nfixture: f.yaml\nsteps: [{action: schedule, expect: boom}]\n",
			wantErr: `unknown expect "boom"`,
		},
		{
			name: "result assertion without participant",
			yaml: "name: x\ndescription: x\nfixture: f.yaml\nsteps: [{action: schedule}]\n" +
				"assertions: [{type: result, event: solo-juv}]\n",
			wantErr: "result requires event and participant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
