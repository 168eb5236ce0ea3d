package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/batonset/internal/contest"
)

func samplePositions() []contest.Position {
	header := contest.DivisionHeader{Division: "Solo Baton - Novice - Juvenile", EventID: 1}
	return []contest.Position{
		{Number: 1, Lanes: []contest.Cell{header, contest.Empty{}}},
		{Number: 2, Lanes: []contest.Cell{
			contest.Contestant{ParticipantID: 1, EventID: 1, Name: "Ann Lee", Division: header.Division, HasConflict: true},
			contest.Empty{},
		}},
		contest.NewLunchPosition(3, 2),
		{Number: 4, Lanes: []contest.Cell{
			contest.Contestant{ParticipantID: 2, EventID: 1, Name: "Bo Kim", Division: header.Division},
			contest.Empty{},
		}},
	}
}

func TestReplaceSetSystem_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	rev := contestRevision(t, s, 1)

	if err := s.ReplaceSetSystem(ctx, 1, rev, "gen-1", samplePositions()); err != nil {
		t.Fatalf("ReplaceSetSystem() failed: %v", err)
	}
	got, err := s.ReadSetSystem(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSetSystem() failed: %v", err)
	}
	if got.GenerationID != "gen-1" || got.Revision != rev {
		t.Errorf("generation = %q revision = %d, want gen-1 and %d", got.GenerationID, got.Revision, rev)
	}
	if diff := cmp.Diff(samplePositions(), got.Positions); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	if !got.Positions[1].HasConflict() || !got.Positions[2].IsLunchBreak() {
		t.Error("conflict and lunch flags did not survive the round trip")
	}

	// A shorter replacement leaves no rows behind.
	if err := s.ReplaceSetSystem(ctx, 1, rev, "gen-2", samplePositions()[:1]); err != nil {
		t.Fatalf("second ReplaceSetSystem() failed: %v", err)
	}
	got, err = s.ReadSetSystem(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSetSystem() failed: %v", err)
	}
	if len(got.Positions) != 1 || got.GenerationID != "gen-2" {
		t.Errorf("positions = %d generation = %q, want 1 and gen-2", len(got.Positions), got.GenerationID)
	}
}

func TestReplaceSetSystem_RejectsStaleRevision(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	rev := contestRevision(t, s, 1)

	if _, err := s.Register(ctx, contest.Registration{EventID: 3, ParticipantID: 2}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	err := s.ReplaceSetSystem(ctx, 1, rev, "gen-1", samplePositions())
	if !contest.IsConcurrentModificationError(err) {
		t.Fatalf("error = %v, want concurrent modification", err)
	}
	got, err := s.ReadSetSystem(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSetSystem() failed: %v", err)
	}
	if len(got.Positions) != 0 {
		t.Errorf("positions = %d, want nothing written", len(got.Positions))
	}
}

func TestReplaceSetSystem_FailureKeepsPreviousRows(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	rev := contestRevision(t, s, 1)

	if err := s.ReplaceSetSystem(ctx, 1, rev, "gen-1", samplePositions()); err != nil {
		t.Fatalf("ReplaceSetSystem() failed: %v", err)
	}

	// The last row references a participant that does not exist, so the
	// insert fails after three rows have been written.
	broken := samplePositions()
	broken[3].Lanes[0] = contest.Contestant{ParticipantID: 999, EventID: 1, Division: "Solo Baton - Novice - Juvenile"}
	if err := s.ReplaceSetSystem(ctx, 1, rev, "gen-2", broken); err == nil {
		t.Fatal("expected foreign key failure")
	}

	got, err := s.ReadSetSystem(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSetSystem() failed: %v", err)
	}
	if got.GenerationID != "gen-1" {
		t.Errorf("generation = %q, want gen-1 intact", got.GenerationID)
	}
	if diff := cmp.Diff(samplePositions(), got.Positions); diff != "" {
		t.Errorf("previous running order changed (-want +got):\n%s", diff)
	}
}

func TestReplaceSetSystem_ChecksShape(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	rev := contestRevision(t, s, 1)

	gap := samplePositions()
	gap[1].Number = 5
	if err := s.ReplaceSetSystem(ctx, 1, rev, "g", gap); !contest.IsValidationError(err) {
		t.Errorf("numbering gap: error = %v, want validation error", err)
	}

	narrow := samplePositions()
	narrow[0].Lanes = narrow[0].Lanes[:1]
	if err := s.ReplaceSetSystem(ctx, 1, rev, "g", narrow); !contest.IsValidationError(err) {
		t.Errorf("wrong lane count: error = %v, want validation error", err)
	}
}

func TestReplaceSetSystem_AcceptsOverriddenLaneCount(t *testing.T) {
	s := createTestStore(t)
	seedSample(t, s)
	ctx := context.Background()
	rev := contestRevision(t, s, 1)

	// The sample contest has two lanes; a ruleset may schedule it on three.
	wide := samplePositions()
	for i := range wide {
		if wide[i].IsLunchBreak() {
			wide[i] = contest.NewLunchPosition(wide[i].Number, 3)
			continue
		}
		wide[i].Lanes = append(wide[i].Lanes, contest.Empty{})
	}
	if err := s.ReplaceSetSystem(ctx, 1, rev, "gen-wide", wide); err != nil {
		t.Fatalf("ReplaceSetSystem() failed: %v", err)
	}

	got, err := s.ReadSetSystem(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSetSystem() failed: %v", err)
	}
	if diff := cmp.Diff(wide, got.Positions); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}
