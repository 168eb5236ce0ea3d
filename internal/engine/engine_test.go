package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/batonset/internal/conflict"
	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/fixture"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/scoring"
	"github.com/roach88/batonset/internal/store"
	"github.com/roach88/batonset/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	store  *store.Store
	ids    *fixture.IDs
	gen    *testutil.SequenceGenerator
	runner *Runner
}

func setupTestEnv(t *testing.T, rules ruleset.Ruleset, opts ...Option) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f, err := fixture.Load(testutil.FixturePath("spring.yaml"))
	require.NoError(t, err)
	ids, err := fixture.Import(context.Background(), st, f, rules.Weights)
	require.NoError(t, err)

	gen := testutil.NewSequenceGenerator()
	opts = append([]Option{WithGenerator(gen)}, opts...)
	return &testEnv{store: st, ids: ids, gen: gen, runner: New(st, rules, opts...)}
}

func (e *testEnv) score(event, participant, judge, raw string) contest.Score {
	return contest.Score{
		EventID:       e.ids.Event(event),
		ParticipantID: e.ids.Participant(participant),
		JudgeID:       e.ids.Judge(judge),
		Raw:           contest.MustParsePoints(raw),
	}
}

func TestScheduleContest_PersistsPlan(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())
	ctx := context.Background()

	res, err := env.runner.ScheduleContest(ctx, env.ids.ContestID)
	require.NoError(t, err)
	assert.Equal(t, "gen-0001", res.GenerationID)
	assert.NoError(t, res.Unresolved(), "the coach conflict is solved by moving Ann's divisions to lane 2")

	stored, err := env.store.ReadSetSystem(ctx, env.ids.ContestID)
	require.NoError(t, err)
	assert.Equal(t, "gen-0001", stored.GenerationID)
	assert.Equal(t, res.Revision, stored.Revision)
	if diff := cmp.Diff(res.Plan.Positions, stored.Positions); diff != "" {
		t.Errorf("stored positions differ from the plan (-plan +stored):\n%s", diff)
	}

	// Ann performs at rows 2 and 5 of lane 2: two rows between is under
	// the minimum rest of 3.
	require.Len(t, res.Plan.Conflicts, 1)
	c := res.Plan.Conflicts[0]
	assert.Equal(t, conflict.RestTimeType, c.Type)
	assert.Equal(t, conflict.Warning, c.Severity)
	assert.Equal(t, env.ids.Participant("ann"), c.ParticipantID)
}

func TestScheduleContest_PersistsRulesetLaneCount(t *testing.T) {
	rules := ruleset.Default()
	rules.Lanes = 3
	env := setupTestEnv(t, rules)
	ctx := context.Background()

	res, err := env.runner.ScheduleContest(ctx, env.ids.ContestID)
	require.NoError(t, err)

	stored, err := env.store.ReadSetSystem(ctx, env.ids.ContestID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.Positions)
	for _, p := range stored.Positions {
		assert.Len(t, p.Lanes, 3, "row %d", p.Number)
	}
	if diff := cmp.Diff(res.Plan.Positions, stored.Positions); diff != "" {
		t.Errorf("stored positions differ from the plan (-plan +stored):\n%s", diff)
	}
}

func TestScheduleContest_ReportsUnresolvedConflict(t *testing.T) {
	rules := ruleset.Default()
	rules.MaxSwapAttempts = 0
	env := setupTestEnv(t, rules)

	res, err := env.runner.ScheduleContest(context.Background(), env.ids.ContestID)
	require.NoError(t, err, "unresolved conflicts do not fail the run")

	uerr := res.Unresolved()
	require.Error(t, uerr)
	assert.True(t, IsUnresolvedConflictError(uerr))
	for _, p := range res.Plan.Positions {
		for _, cell := range p.Lanes {
			if ct, ok := cell.(contest.Contestant); ok && ct.ParticipantID == env.ids.Participant("ann") {
				assert.True(t, ct.HasConflict, "Ann's cells are flagged at row %d", p.Number)
			}
		}
	}
}

func TestScheduleContest_LogsBalanceWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rules := ruleset.Default()
	rules.BalanceTolerance = 0.01
	env := setupTestEnv(t, rules, WithLogger(zap.New(core)))

	_, err := env.runner.ScheduleContest(context.Background(), env.ids.ContestID)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("lane times out of balance").Len())
}

func TestScheduleContest_NoJudgedLane(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())
	ctx := context.Background()
	_, err := env.store.DB().ExecContext(ctx, `DELETE FROM lane_judges`)
	require.NoError(t, err)

	_, err = env.runner.ScheduleContest(ctx, env.ids.ContestID)
	assert.True(t, contest.IsStructuralError(err))

	stored, err := env.store.ReadSetSystem(ctx, env.ids.ContestID)
	require.NoError(t, err)
	assert.Empty(t, stored.Positions)
}

func TestRuns_RejectInvalidRuleset(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())
	ctx := context.Background()

	rules := ruleset.Default()
	rules.MinRestPositions = -1
	rules.CriticalRestPositions = 0
	runner := New(env.store, rules, WithGenerator(env.gen))

	_, err := runner.ScheduleContest(ctx, env.ids.ContestID)
	assert.True(t, contest.IsValidationError(err), "schedule: %v", err)
	_, err = runner.TabulateEvent(ctx, env.ids.Event("solo-juv"))
	assert.True(t, contest.IsValidationError(err), "tabulate: %v", err)
	_, err = runner.TabulateContest(ctx, env.ids.ContestID)
	assert.True(t, contest.IsValidationError(err), "tabulate contest: %v", err)
	_, err = runner.RecordScore(ctx, env.score("solo-juv", "ann", "dee", "9.0"))
	assert.True(t, contest.IsValidationError(err), "record score: %v", err)

	// Nothing was generated, persisted or scored.
	assert.Equal(t, 0, env.gen.Count())
	stored, err := env.store.ReadSetSystem(ctx, env.ids.ContestID)
	require.NoError(t, err)
	assert.Empty(t, stored.Positions)
	assert.Empty(t, mustScores(t, env, "solo-juv"))

	rules = ruleset.Default()
	rules.ScoreSumBasis = "median"
	_, err = New(env.store, rules).TabulateEvent(ctx, env.ids.Event("solo-juv"))
	assert.True(t, contest.IsValidationError(err), "unknown basis: %v", err)
}

func TestScheduleContest_UnknownContest(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())

	_, err := env.runner.ScheduleContest(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
}

func TestRecordScore_TabulatesOnceComplete(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())
	ctx := context.Background()

	first, err := env.runner.RecordScore(ctx, env.score("solo-juv", "ann", "dee", "8.5"))
	require.NoError(t, err)
	assert.Nil(t, first.Tabulation, "bo is not scored yet")

	second, err := env.runner.RecordScore(ctx, env.score("solo-juv", "bo", "dee", "9.0"))
	require.NoError(t, err)
	require.NotNil(t, second.Tabulation)

	results, err := env.store.ListResults(ctx, env.ids.Event("solo-juv"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, env.ids.Participant("bo"), results[0].ParticipantID)
	assert.Equal(t, 1, results[0].FinalPlacement)
	assert.Equal(t, second.Tabulation.GenerationID, results[0].GenerationID)

	scores, err := env.store.ListScores(ctx, env.ids.Event("solo-juv"))
	require.NoError(t, err)
	for _, s := range scores {
		assert.NotZero(t, s.PlacementForJudge, "placements are written back")
	}
}

func TestTabulateEvent_Advancement(t *testing.T) {
	rules := ruleset.Default()
	rules.AdvancementWins[contest.StatusNovice] = 3
	env := setupTestEnv(t, rules)
	ctx := context.Background()

	for _, s := range []contest.Score{
		env.score("solo-juv", "ann", "dee", "9.5"),
		env.score("solo-juv", "bo", "dee", "8.0"),
	} {
		_, err := env.store.UpsertScore(ctx, s, rules.Weights)
		require.NoError(t, err)
	}

	res, err := env.runner.TabulateEvent(ctx, env.ids.Event("solo-juv"))
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, env.ids.Participant("ann"), res.Results[0].ParticipantID)
	assert.True(t, res.Results[0].IsAdvancement, "two prior wins plus this one")
	assert.False(t, res.Results[1].IsAdvancement)
}

func TestTabulateContest_ReportsIncompleteEvents(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default(), WithConcurrency(2))
	ctx := context.Background()

	for _, s := range []contest.Score{
		env.score("solo-juv", "ann", "dee", "9.0"),
		env.score("solo-juv", "bo", "dee", "8.0"),
		env.score("solo-pre", "cy", "carla-j", "7.5"),
	} {
		_, err := env.store.UpsertScore(ctx, s, scoring.DefaultWeights())
		require.NoError(t, err)
	}

	outcomes, err := env.runner.TabulateContest(ctx, env.ids.ContestID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.NotNil(t, outcomes[0].Result)
	assert.True(t, contest.IsIncompleteScoringError(outcomes[1].Incomplete), "X-Strut has no scores")
	assert.NotNil(t, outcomes[2].Result)
	assert.Equal(t, 3, env.gen.Count())
}

func TestRecordScore_ConcurrentEntry(t *testing.T) {
	env := setupTestEnv(t, ruleset.Default())
	ctx := context.Background()

	scores := []contest.Score{
		env.score("solo-juv", "ann", "dee", "9.0"),
		env.score("solo-juv", "bo", "dee", "8.0"),
		env.score("solo-juv", "ann", "carla-j", "8.5"),
		env.score("solo-juv", "bo", "carla-j", "8.9"),
		env.score("solo-pre", "cy", "carla-j", "7.5"),
		env.score("solo-pre", "cy", "dee", "7.0"),
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(scores))
	for _, s := range scores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.runner.RecordScore(ctx, s); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("RecordScore() failed: %v", err)
	}

	// Whatever the interleaving, a final tabulation sees every score and
	// every stored result matches it.
	for _, key := range []string{"solo-juv", "solo-pre"} {
		res, err := env.runner.TabulateEvent(ctx, env.ids.Event(key))
		require.NoError(t, err)
		stored, err := env.store.ListResults(ctx, env.ids.Event(key))
		require.NoError(t, err)
		assert.Len(t, stored, len(res.Results))
	}
	assert.Len(t, mustScores(t, env, "solo-juv"), 4)
}

func mustScores(t *testing.T, env *testEnv, event string) []contest.Score {
	t.Helper()
	scores, err := env.store.ListScores(context.Background(), env.ids.Event(event))
	require.NoError(t, err)
	return scores
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var mu sync.Mutex
	inside := map[string]int{}
	maxInside := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := eventKey(int64(i % 2))
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			mu.Lock()
			inside[key]++
			if inside[key] > maxInside[key] {
				maxInside[key] = inside[key]
			}
			mu.Unlock()

			mu.Lock()
			inside[key]--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside[eventKey(0)])
	assert.Equal(t, 1, maxInside[eventKey(1)])
	assert.Empty(t, k.locks, "entries are dropped after the last unlock")
}
