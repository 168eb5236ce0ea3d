package setsystem

import (
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/batonset/internal/conflict"
	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/testutil"
)

func division(t contest.EventType, eventID int64, overhead time.Duration, entries ...contest.Entry) contest.Division {
	for i := range entries {
		entries[i].EventID = eventID
	}
	return contest.Division{
		Key:      contest.DivisionKey{Type: t, Status: contest.StatusNovice, Age: contest.AgeJuvenile},
		EventIDs: []int64{eventID},
		Entries:  entries,
		Overhead: overhead,
	}
}

func entry(pid int64, d time.Duration) contest.Entry {
	return contest.Entry{RegistrationID: pid, ParticipantID: pid, Duration: d}
}

// plainJudges returns n judges without coaches, one per lane.
func plainJudges(n int) ([]contest.Judge, []contest.LaneJudge) {
	var js []contest.Judge
	var ljs []contest.LaneJudge
	for i := 1; i <= n; i++ {
		js = append(js, contest.Judge{ID: int64(100 + i), FirstName: "Judge", LastName: string(rune('A' + i - 1))})
		ljs = append(ljs, contest.LaneJudge{Lane: i, JudgeID: int64(100 + i)})
	}
	return js, ljs
}

func laneTotals(p *Plan) []time.Duration {
	out := make([]time.Duration, len(p.Lanes))
	for i, l := range p.Lanes {
		out[i] = l.Total
	}
	return out
}

func TestSchedule_BalancesLongestFirst(t *testing.T) {
	judges, lanes := plainJudges(4)
	rules := ruleset.Default()
	rules.BalanceTolerance = 1.0

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventModel, 3, 0, entry(3, 10*time.Minute)),
			division(contest.EventSoloBaton, 1, 0, entry(1, 30*time.Minute)),
			division(contest.EventXStrut, 4, 0, entry(4, 10*time.Minute)),
			division(contest.EventFlag, 2, 0, entry(2, 30*time.Minute)),
		},
		Lanes:      4,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      rules,
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{30 * time.Minute, 30 * time.Minute, 10 * time.Minute, 10 * time.Minute}, laneTotals(plan))
	assert.Equal(t, []string{"Flag - Novice - Juvenile"}, plan.Lanes[0].Divisions)
	assert.Equal(t, []string{"Solo Baton - Novice - Juvenile"}, plan.Lanes[1].Divisions)
	assert.Equal(t, []string{"Model - Novice - Juvenile"}, plan.Lanes[2].Divisions)
	assert.Equal(t, []string{"X-Strut - Novice - Juvenile"}, plan.Lanes[3].Divisions)

	assert.Equal(t, 20*time.Minute, plan.Balance.Spread())
	assert.Equal(t, 20*time.Minute, plan.Balance.Mean)
	assert.True(t, plan.Balance.Within)
	assert.Len(t, plan.Positions, 2, "header row and one contestant row")
	assert.Empty(t, plan.Conflicts)
}

func TestSchedule_GreedyLeastLoaded(t *testing.T) {
	judges, lanes := plainJudges(2)

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventSoloBaton, 1, 0, entry(1, 30*time.Minute)),
			division(contest.EventFlag, 2, 0, entry(2, 20*time.Minute)),
			division(contest.EventModel, 3, 0, entry(3, 10*time.Minute)),
			division(contest.EventXStrut, 4, 0, entry(4, 10*time.Minute)),
			division(contest.EventTrio, 5, 0, entry(5, 5*time.Minute)),
		},
		Lanes:      2,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      ruleset.Default(),
	})
	require.NoError(t, err)

	// 30 -> 1, 20 -> 2, 10 -> 2 (Model), 10 -> 1 on the 30/30 tie, 5 -> 2.
	assert.Equal(t, []time.Duration{40 * time.Minute, 35 * time.Minute}, laneTotals(plan))
	assert.True(t, plan.Balance.Within)
}

// assertDivisionsContiguous checks that in every lane each division's cells
// sit at consecutive queue positions, with no lunch row in between.
func assertDivisionsContiguous(t *testing.T, plan *Plan, lanes int) {
	t.Helper()
	for lane := 1; lane <= lanes; lane++ {
		rows := map[string][]int{}
		for _, p := range plan.Positions {
			switch c := p.Lane(lane).(type) {
			case contest.Contestant:
				rows[c.Division] = append(rows[c.Division], p.Number)
			case contest.DivisionHeader:
				rows[c.Division] = append(rows[c.Division], p.Number)
			}
		}
		for div, rs := range rows {
			assert.Equal(t, len(rs), rs[len(rs)-1]-rs[0]+1,
				"division %s split in lane %d: rows %v", div, lane, rs)
		}
	}
}

func TestSchedule_PositionsContiguousAndDivisionsContiguous(t *testing.T) {
	judges, lanes := plainJudges(2)
	rules := ruleset.Default()
	// Reached after row 2, while both lanes are mid-division.
	rules.LunchAfter = 2 * time.Minute

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventSoloBaton, 1, time.Minute, entry(1, 2*time.Minute), entry(2, 2*time.Minute)),
			division(contest.EventFlag, 2, time.Minute, entry(4, 2*time.Minute)),
			division(contest.EventModel, 3, time.Minute, entry(5, 2*time.Minute), entry(6, 2*time.Minute)),
		},
		Lanes:      2,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      rules,
	})
	require.NoError(t, err)

	for i, p := range plan.Positions {
		require.Equal(t, i+1, p.Number)
		require.Len(t, p.Lanes, 2)
	}

	// Row 4 is the first where one lane starts the Flag division and the
	// other has finished, so lunch waits until then.
	require.Len(t, plan.Positions, 6)
	assert.True(t, plan.Positions[3].IsLunchBreak())
	assert.False(t, plan.LunchSkipped)
	assertDivisionsContiguous(t, plan, 2)
}

func TestSchedule_LunchBreakAtDivisionBoundary(t *testing.T) {
	judges, lanes := plainJudges(1)
	rules := ruleset.Default()
	rules.LunchAfter = 15 * time.Minute

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventSoloBaton, 1, time.Minute, entry(1, 10*time.Minute), entry(2, 10*time.Minute)),
			division(contest.EventFlag, 2, time.Minute, entry(3, 10*time.Minute)),
		},
		Lanes:      1,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      rules,
	})
	require.NoError(t, err)

	// header 1m, 11m, 21m -> the threshold falls inside Solo Baton, so
	// lunch goes before the Flag header.
	require.Len(t, plan.Positions, 6)
	for i, p := range plan.Positions {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, i == 3, p.IsLunchBreak())
	}
	assert.Equal(t, contest.KindDivisionHeader, plan.Positions[4].Lane(1).Kind())
	assert.False(t, plan.LunchSkipped)
	assertDivisionsContiguous(t, plan, 1)
}

func TestSchedule_LunchSkippedWithoutDivisionBoundary(t *testing.T) {
	judges, lanes := plainJudges(1)
	rules := ruleset.Default()
	rules.LunchAfter = 15 * time.Minute

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventSoloBaton, 1, time.Minute,
				entry(1, 10*time.Minute), entry(2, 10*time.Minute), entry(3, 10*time.Minute)),
		},
		Lanes:      1,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      rules,
	})
	require.NoError(t, err)

	require.Len(t, plan.Positions, 4)
	for _, p := range plan.Positions {
		assert.False(t, p.IsLunchBreak(), "row %d", p.Number)
	}
	assert.True(t, plan.LunchSkipped)
	assertDivisionsContiguous(t, plan, 1)
}

func TestSchedule_NoLunchWhenThresholdReachedOnLastRow(t *testing.T) {
	judges, lanes := plainJudges(1)
	rules := ruleset.Default()
	rules.LunchAfter = 3 * time.Minute

	plan, err := Schedule(Input{
		Divisions:  []contest.Division{division(contest.EventSoloBaton, 1, time.Minute, entry(1, 2*time.Minute))},
		Lanes:      1,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      rules,
	})
	require.NoError(t, err)

	require.Len(t, plan.Positions, 2)
	assert.False(t, plan.Positions[1].IsLunchBreak())
	assert.False(t, plan.LunchSkipped, "a threshold on the last row leaves nothing to skip")
}

func coachingRoster() (*contest.Roster, []contest.LaneJudge) {
	roster := contest.NewRoster(&contest.Snapshot{
		Coaches:      []contest.Coach{{ID: 1, FirstName: "Carla", LastName: "Diaz"}},
		Participants: []contest.Participant{{ID: 1, FirstName: "Ann", LastName: "Lee", CoachID: 1}},
		Judges: []contest.Judge{
			{ID: 100, CoachID: 1, FirstName: "Carla", LastName: "Diaz"},
			{ID: 101, FirstName: "Dee", LastName: "Fox"},
		},
	})
	return roster, []contest.LaneJudge{{Lane: 1, JudgeID: 100}, {Lane: 2, JudgeID: 101}}
}

func TestSchedule_CoachConflictReassignsLane(t *testing.T) {
	roster, lanes := coachingRoster()

	plan, err := Schedule(Input{
		Divisions:  []contest.Division{division(contest.EventSoloBaton, 1, time.Minute, entry(1, 2*time.Minute))},
		Lanes:      2,
		LaneJudges: lanes,
		Roster:     roster,
		Rules:      ruleset.Default(),
	})
	require.NoError(t, err)

	assert.Empty(t, plan.Lanes[0].Divisions)
	assert.Equal(t, []string{"Solo Baton - Novice - Juvenile"}, plan.Lanes[1].Divisions)
	assert.Empty(t, plan.Conflicts)
	assert.False(t, plan.Positions[1].HasConflict())
}

func TestSchedule_CoachConflictFlaggedWhenUnresolvable(t *testing.T) {
	roster, lanes := coachingRoster()
	rules := ruleset.Default()
	rules.MaxSwapAttempts = 0

	plan, err := Schedule(Input{
		Divisions:  []contest.Division{division(contest.EventSoloBaton, 1, time.Minute, entry(1, 2*time.Minute))},
		Lanes:      2,
		LaneJudges: lanes,
		Roster:     roster,
		Rules:      rules,
	})
	require.NoError(t, err, "unresolved conflicts never fail the run")

	assert.Equal(t, []string{"Solo Baton - Novice - Juvenile"}, plan.Lanes[0].Divisions)
	unresolved := plan.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, conflict.CoachStudentType, unresolved[0].Type)
	assert.Equal(t, int64(100), unresolved[0].JudgeID)

	assert.True(t, plan.Positions[0].Lane(1).Conflicted(), "header flagged")
	assert.True(t, plan.Positions[1].Lane(1).Conflicted(), "contestant flagged")
	assert.True(t, plan.Positions[1].HasConflict())
}

func TestSchedule_RestTimeWarningFlagsBothAppearances(t *testing.T) {
	judges, lanes := plainJudges(1)

	plan, err := Schedule(Input{
		Divisions: []contest.Division{
			division(contest.EventSoloBaton, 1, time.Minute, entry(1, 2*time.Minute), entry(2, 2*time.Minute)),
			division(contest.EventFlag, 2, time.Minute, entry(1, 2*time.Minute)),
		},
		Lanes:      1,
		LaneJudges: lanes,
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: judges}),
		Rules:      ruleset.Default(),
	})
	require.NoError(t, err)

	// Solo header 1, #1 at 2, #2 at 3, Flag header 4, #1 at 5: two rows of rest.
	require.Len(t, plan.Conflicts, 1)
	c := plan.Conflicts[0]
	assert.Equal(t, conflict.RestTimeType, c.Type)
	assert.Equal(t, conflict.Warning, c.Severity)
	assert.Empty(t, plan.Unresolved())
	assert.True(t, plan.Positions[1].Lane(1).Conflicted())
	assert.True(t, plan.Positions[4].Lane(1).Conflicted())
	assert.False(t, plan.Positions[2].Lane(1).Conflicted())
}

func TestSchedule_Deterministic(t *testing.T) {
	in, err := InputFromSnapshot(testutil.SampleSnapshot(), ruleset.Default())
	require.NoError(t, err)

	first, err := Schedule(in)
	require.NoError(t, err)

	reversed := in
	reversed.Divisions = slices.Clone(in.Divisions)
	slices.Reverse(reversed.Divisions)
	reversed.LaneJudges = slices.Clone(in.LaneJudges)
	slices.Reverse(reversed.LaneJudges)

	second, err := Schedule(reversed)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("schedule not deterministic (-first +second):\n%s", diff)
	}
}

func TestSchedule_NoJudgedLane(t *testing.T) {
	_, err := Schedule(Input{
		ContestID:  7,
		Divisions:  []contest.Division{division(contest.EventSoloBaton, 1, 0, entry(1, time.Minute))},
		Lanes:      2,
		LaneJudges: []contest.LaneJudge{{Lane: 3, JudgeID: 1}},
		Roster:     contest.NewRoster(&contest.Snapshot{Judges: []contest.Judge{{ID: 1}}}),
		Rules:      ruleset.Default(),
	})

	require.Error(t, err)
	assert.True(t, contest.IsStructuralError(err))
	assert.Contains(t, err.Error(), "no eligible judge")
}

func TestSchedule_EmptyContest(t *testing.T) {
	plan, err := Schedule(Input{Lanes: 3, Rules: ruleset.Default()})
	require.NoError(t, err)

	assert.Empty(t, plan.Positions)
	assert.Len(t, plan.Lanes, 3)
	assert.True(t, plan.Balance.Within)
}

func TestSchedule_RejectsZeroLanes(t *testing.T) {
	_, err := Schedule(Input{Lanes: 0, Rules: ruleset.Default()})
	assert.True(t, contest.IsValidationError(err))
}

func TestSchedule_GoldenRunningOrder(t *testing.T) {
	rules := ruleset.Default()
	rules.LunchAfter = 4 * time.Minute
	rules.MinRestPositions = 4

	in, err := InputFromSnapshot(testutil.SampleSnapshot(), rules)
	require.NoError(t, err)
	plan, err := Schedule(in)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "running_order", []byte(Render(plan.Positions, plan.Lanes)))
}
