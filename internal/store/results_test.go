package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
)

func TestReplaceResults_WritesPlacementsAndResults(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	w := scoring.DefaultWeights()

	a, err := s.UpsertScore(ctx, score(1, 1, 1, "8.0"), w)
	if err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	b, err := s.UpsertScore(ctx, score(1, 2, 1, "9.0"), w)
	if err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	rev := eventRevision(t, s, 1)

	placements := []scoring.Placement{{ScoreID: b, Rank: 1}, {ScoreID: a, Rank: 2}}
	results := []contest.Result{
		{EventID: 1, ParticipantID: 1, PlacementPointsSum: 2, ScoreSum: contest.MustParsePoints("8.0"), FinalPlacement: 2},
		{EventID: 1, ParticipantID: 2, PlacementPointsSum: 1, ScoreSum: contest.MustParsePoints("9.0"), FinalPlacement: 1, QualifiedForNationals: true},
	}
	if err := s.ReplaceResults(ctx, 1, rev, "gen-1", placements, results); err != nil {
		t.Fatalf("ReplaceResults() failed: %v", err)
	}
	if got := eventRevision(t, s, 1); got != rev {
		t.Errorf("event revision moved %d -> %d on replace", rev, got)
	}

	got, err := s.ListResults(ctx, 1)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 2 || got[0].ParticipantID != 2 || !got[0].QualifiedForNationals || got[0].GenerationID != "gen-1" {
		t.Errorf("results = %+v, want participant 2 first, qualified, gen-1", got)
	}
	if got[1].ScoreSum.String() != "8.0" {
		t.Errorf("score sum = %s, want 8.0", got[1].ScoreSum)
	}

	scores, err := s.ListScores(ctx, 1)
	if err != nil {
		t.Fatalf("ListScores() failed: %v", err)
	}
	for _, sc := range scores {
		want := map[int64]int{1: 2, 2: 1}[sc.ParticipantID]
		if sc.PlacementForJudge != want {
			t.Errorf("participant %d placement = %d, want %d", sc.ParticipantID, sc.PlacementForJudge, want)
		}
	}
}

func TestReplaceResults_RejectsStaleEventRevision(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	w := scoring.DefaultWeights()

	if _, err := s.UpsertScore(ctx, score(1, 1, 1, "8.0"), w); err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	rev := eventRevision(t, s, 1)
	if _, err := s.UpsertScore(ctx, score(1, 2, 1, "7.0"), w); err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}

	results := []contest.Result{{EventID: 1, ParticipantID: 1, PlacementPointsSum: 1, ScoreSum: contest.IntPoints(8), FinalPlacement: 1}}
	err := s.ReplaceResults(ctx, 1, rev, "gen-1", nil, results)
	if !contest.IsConcurrentModificationError(err) {
		t.Fatalf("error = %v, want concurrent modification", err)
	}
	got, err := s.ListResults(ctx, 1)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("results = %d, want nothing written", len(got))
	}

	// Scores in other events do not invalidate this one.
	rev3 := eventRevision(t, s, 3)
	if _, err := s.UpsertScore(ctx, score(1, 1, 2, "8.0"), w); err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	if got := eventRevision(t, s, 3); got != rev3 {
		t.Errorf("event 3 revision moved %d -> %d on a score in event 1", rev3, got)
	}
}

func TestReplaceResults_FailureKeepsPreviousRows(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	w := scoring.DefaultWeights()

	a, err := s.UpsertScore(ctx, score(1, 1, 1, "8.0"), w)
	if err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	b, err := s.UpsertScore(ctx, score(1, 2, 1, "9.0"), w)
	if err != nil {
		t.Fatalf("UpsertScore() failed: %v", err)
	}
	rev := eventRevision(t, s, 1)

	first := []contest.Result{
		{EventID: 1, ParticipantID: 2, PlacementPointsSum: 1, ScoreSum: contest.MustParsePoints("9.0"), FinalPlacement: 1},
		{EventID: 1, ParticipantID: 1, PlacementPointsSum: 2, ScoreSum: contest.MustParsePoints("8.0"), FinalPlacement: 2},
	}
	if err := s.ReplaceResults(ctx, 1, rev, "gen-1", []scoring.Placement{{ScoreID: b, Rank: 1}, {ScoreID: a, Rank: 2}}, first); err != nil {
		t.Fatalf("ReplaceResults() failed: %v", err)
	}
	want, err := s.ListResults(ctx, 1)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}

	// The placements and the first result are written before the second
	// result hits the unknown participant.
	second := []contest.Result{
		{EventID: 1, ParticipantID: 1, PlacementPointsSum: 1, ScoreSum: contest.MustParsePoints("8.0"), FinalPlacement: 1},
		{EventID: 1, ParticipantID: 999, PlacementPointsSum: 2, ScoreSum: contest.MustParsePoints("9.0"), FinalPlacement: 2},
	}
	err = s.ReplaceResults(ctx, 1, rev, "gen-2", []scoring.Placement{{ScoreID: a, Rank: 1}, {ScoreID: b, Rank: 2}}, second)
	if err == nil {
		t.Fatal("expected foreign key failure")
	}

	got, err := s.ListResults(ctx, 1)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("previous results changed (-want +got):\n%s", diff)
	}

	scores, err := s.ListScores(ctx, 1)
	if err != nil {
		t.Fatalf("ListScores() failed: %v", err)
	}
	for _, sc := range scores {
		wantRank := map[int64]int{1: 2, 2: 1}[sc.ParticipantID]
		if sc.PlacementForJudge != wantRank {
			t.Errorf("participant %d placement = %d, want %d kept from gen-1", sc.ParticipantID, sc.PlacementForJudge, wantRank)
		}
	}
}

func TestEventSnapshot_PriorWins(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)

	snap, err := s.EventSnapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("EventSnapshot() failed: %v", err)
	}
	if len(snap.Registrations) != 2 || snap.Contest.ID != 1 || snap.Revision == 0 {
		t.Errorf("snapshot = %+v, want two registrations of contest 1 with a revision", snap)
	}
	wins := snap.PriorWins()
	if wins[1] != 2 || len(wins) != 1 {
		t.Errorf("prior wins = %v, want participant 1 with 2", wins)
	}

	xstrut, err := s.EventSnapshot(context.Background(), 2)
	if err != nil {
		t.Fatalf("EventSnapshot() failed: %v", err)
	}
	if len(xstrut.PriorWins()) != 0 {
		t.Errorf("X-Strut prior wins = %v, want none", xstrut.PriorWins())
	}
}
