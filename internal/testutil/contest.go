package testutil

import (
	"time"

	"github.com/roach88/batonset/internal/contest"
)

// Date parses a YYYY-MM-DD date and panics on malformed input.
func Date(s string) time.Time {
	t, err := time.Parse(contest.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// SampleSnapshot returns a small two-lane contest:
//
//   - lane 1 is judged by Carla Diaz, who coaches Ann Lee
//   - lane 2 is judged by Dee Fox, who coaches nobody
//   - Ann Lee enters Solo Baton and X-Strut, so she appears twice
//
// The ids match the ones a fresh store assigns when the sample is imported
// in order.
func SampleSnapshot() *contest.Snapshot {
	c := contest.Contest{
		ID:             1,
		Name:           "Spring Invitational",
		Date:           Date("2026-05-02"),
		Location:       "Riverside Gym",
		Classification: contest.ClassAA,
		NumLanes:       2,
	}
	return &contest.Snapshot{
		Contest: c,
		Coaches: []contest.Coach{
			{ID: 1, FirstName: "Carla", LastName: "Diaz", Studio: "Étoile Twirl", IsJudge: true},
			{ID: 2, FirstName: "Bea", LastName: "North", Studio: "North Stars"},
		},
		Participants: []contest.Participant{
			{ID: 1, FirstName: "Ann", LastName: "Lee", Birthdate: Date("2017-03-01"), Citizenship: "USA", CoachID: 1},
			{ID: 2, FirstName: "Bo", LastName: "Kim", Birthdate: Date("2016-06-10"), Citizenship: "USA", CoachID: 2},
			{ID: 3, FirstName: "Cy", LastName: "Ray", Birthdate: Date("2015-01-20"), Citizenship: "USA", CoachID: 2},
		},
		Judges: []contest.Judge{
			{ID: 1, ContestID: 1, CoachID: 1, FirstName: "Carla", LastName: "Diaz"},
			{ID: 2, ContestID: 1, FirstName: "Dee", LastName: "Fox"},
		},
		LaneJudges: []contest.LaneJudge{
			{ContestID: 1, Lane: 1, JudgeID: 1},
			{ContestID: 1, Lane: 2, JudgeID: 2},
		},
		Events: []contest.Event{
			{ID: 1, ContestID: 1, Type: contest.EventSoloBaton, Status: contest.StatusNovice, Age: contest.AgeJuvenile,
				AgeMin: 7, AgeMax: 9, TimeMin: 60 * time.Second, TimeMax: 90 * time.Second},
			{ID: 2, ContestID: 1, Type: contest.EventXStrut, Status: contest.StatusNovice, Age: contest.AgeJuvenile,
				AgeMin: 7, AgeMax: 9},
			{ID: 3, ContestID: 1, Type: contest.EventSoloBaton, Status: contest.StatusNovice, Age: contest.AgePreTeen,
				AgeMin: 10, AgeMax: 12, TimeMin: 60 * time.Second, TimeMax: 90 * time.Second},
		},
		Statuses: []contest.ParticipantStatus{
			{ID: 1, ParticipantID: 1, EventType: contest.EventSoloBaton, Status: contest.StatusNovice, Wins: 2},
		},
		Registrations: []contest.Registration{
			{ID: 1, EventID: 1, ParticipantID: 1, RegisteredAt: Date("2026-04-01")},
			{ID: 2, EventID: 1, ParticipantID: 2, RegisteredAt: Date("2026-04-01")},
			{ID: 3, EventID: 2, ParticipantID: 1, RegisteredAt: Date("2026-04-02")},
			{ID: 4, EventID: 3, ParticipantID: 3, RegisteredAt: Date("2026-04-03")},
		},
	}
}
