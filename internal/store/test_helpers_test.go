package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedSample imports testutil.SampleSnapshot in order so the stored ids
// match the sample's ids.
func seedSample(t *testing.T, s *Store) *contest.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap := testutil.SampleSnapshot()

	check := func(what string, want, got int64, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("insert %s: %v", what, err)
		}
		if got != want {
			t.Fatalf("insert %s: id = %d, want %d", what, got, want)
		}
	}

	for _, c := range snap.Coaches {
		id, err := s.InsertCoach(ctx, c)
		check("coach", c.ID, id, err)
	}
	for _, p := range snap.Participants {
		id, err := s.InsertParticipant(ctx, p)
		check("participant", p.ID, id, err)
	}
	id, err := s.InsertContest(ctx, snap.Contest)
	check("contest", snap.Contest.ID, id, err)
	for _, j := range snap.Judges {
		id, err := s.InsertJudge(ctx, j)
		check("judge", j.ID, id, err)
	}
	for _, lj := range snap.LaneJudges {
		if err := s.AssignLaneJudge(ctx, lj); err != nil {
			t.Fatalf("assign lane %d: %v", lj.Lane, err)
		}
	}
	for _, e := range snap.Events {
		id, err := s.InsertEvent(ctx, e)
		check("event", e.ID, id, err)
	}
	for _, r := range snap.Registrations {
		id, err := s.Register(ctx, r)
		check("registration", r.ID, id, err)
	}
	for _, st := range snap.Statuses {
		id, err := s.SetParticipantStatus(ctx, st)
		check("status", st.ID, id, err)
	}
	return snap
}

func contestRevision(t *testing.T, s *Store, id int64) int64 {
	t.Helper()
	c, err := s.GetContest(context.Background(), id)
	if err != nil {
		t.Fatalf("GetContest() failed: %v", err)
	}
	return c.Revision
}

func eventRevision(t *testing.T, s *Store, id int64) int64 {
	t.Helper()
	_, rev, err := getEvent(context.Background(), s.db, id)
	if err != nil {
		t.Fatalf("getEvent() failed: %v", err)
	}
	return rev
}

func score(eventID, participantID, judgeID int64, raw string) contest.Score {
	return contest.Score{
		EventID:       eventID,
		ParticipantID: participantID,
		JudgeID:       judgeID,
		Raw:           contest.MustParsePoints(raw),
	}
}
