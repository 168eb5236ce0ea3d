package contest

import (
	"fmt"
	"time"
)

// DateLayout is the storage and fixture format for calendar dates.
const DateLayout = "2006-01-02"

// Participant is a registered twirler.
type Participant struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Birthdate   time.Time `json:"birthdate"`
	Gender      string    `json:"gender,omitempty"`
	Citizenship string    `json:"citizenship"`
	CoachID     int64     `json:"coach_id,omitempty"` // 0 when unset
	Studio      string    `json:"studio,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// DisplayName returns "First Last".
func (p Participant) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// AgeOn returns the participant's age in whole years on the given date.
func (p Participant) AgeOn(date time.Time) int {
	age := date.Year() - p.Birthdate.Year()
	if date.Month() < p.Birthdate.Month() ||
		(date.Month() == p.Birthdate.Month() && date.Day() < p.Birthdate.Day()) {
		age--
	}
	return age
}

// Coach trains participants and may also serve as a judge.
type Coach struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Studio    string `json:"studio,omitempty"`
	IsJudge   bool   `json:"is_judge"`
}

// Contest is one competition day.
type Contest struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Date           time.Time      `json:"date"`
	Location       string         `json:"location,omitempty"`
	Classification Classification `json:"classification"`
	NumLanes       int            `json:"num_lanes"`
	Notes          string         `json:"notes,omitempty"`

	// Revision increases whenever registrations, events, lane judges or
	// participant status of the contest change. Score edits move only the
	// event revision.
	Revision int64 `json:"revision"`
}

// Judge scores events at one contest.
type Judge struct {
	ID        int64  `json:"id"`
	ContestID int64  `json:"contest_id"`
	CoachID   int64  `json:"coach_id,omitempty"` // set when a coach serves as judge
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// DisplayName returns "First Last".
func (j Judge) DisplayName() string {
	return j.FirstName + " " + j.LastName
}

// LaneJudge assigns a judge to one performance lane of a contest.
type LaneJudge struct {
	ContestID int64 `json:"contest_id"`
	Lane      int   `json:"lane"`
	JudgeID   int64 `json:"judge_id"`
}

// Event is one (event type, status level, age division) competition.
type Event struct {
	ID        int64         `json:"id"`
	ContestID int64         `json:"contest_id"`
	Type      EventType     `json:"event_type"`
	Status    StatusLevel   `json:"status_level"`
	Age       AgeDivision   `json:"age_division"`
	AgeMin    int           `json:"age_min"`
	AgeMax    int           `json:"age_max"`
	TimeMin   time.Duration `json:"time_min"`
	TimeMax   time.Duration `json:"time_max"`
	AreaSize  string        `json:"performance_area_size,omitempty"`
}

// Name is the human-readable division label, e.g. "Solo Baton - Novice - Juvenile".
func (e Event) Name() string {
	return fmt.Sprintf("%s - %s - %s", e.Type, e.Status, e.Age)
}

// ParticipantStatus records a participant's level and wins for one event type.
type ParticipantStatus struct {
	ID            int64       `json:"id"`
	ParticipantID int64       `json:"participant_id"`
	EventType     EventType   `json:"event_type"`
	Status        StatusLevel `json:"status_level"`
	Wins          int         `json:"wins"`
}

// Registration enters a participant into an event.
type Registration struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"event_id"`
	ParticipantID int64     `json:"participant_id"`
	RegisteredAt  time.Time `json:"registration_date"`
}

// PenaltyCounts are the seven penalty tallies a judge records.
// TimeSeconds is a signed deviation from the allowed time; its absolute
// value is penalized.
type PenaltyCounts struct {
	Drops          int `json:"drops" yaml:"drops"`
	TwoHand        int `json:"two_hand" yaml:"two_hand"`
	Falls          int `json:"falls" yaml:"falls"`
	Breaks         int `json:"breaks" yaml:"breaks"`
	TimeSeconds    int `json:"time_seconds" yaml:"time_seconds"`
	NoSalute       int `json:"no_salute" yaml:"no_salute"`
	ImproperSalute int `json:"improper_salute" yaml:"improper_salute"`
}

// Score is one judge's evaluation of one participant in one event.
//
// TotalPenalties and FinalScore are derived from Raw and Penalties by the
// scoring package; the store keeps a materialized copy for reads.
type Score struct {
	ID             int64         `json:"id"`
	EventID        int64         `json:"event_id"`
	ParticipantID  int64         `json:"participant_id"`
	JudgeID        int64         `json:"judge_id"`
	Raw            Points        `json:"raw_score"`
	Penalties      PenaltyCounts `json:"penalties"`
	TotalPenalties Points        `json:"total_penalties"`
	FinalScore     Points        `json:"final_score"`

	// PlacementForJudge is this judge's rank of the participant (1 = best),
	// 0 until the aggregator has run.
	PlacementForJudge int    `json:"placement_for_this_judge,omitempty"`
	Flagged           bool   `json:"flagged"`
	Notes             string `json:"notes,omitempty"`
}

// Result is the tabulated outcome for one participant in one event.
type Result struct {
	ID                    int64  `json:"id"`
	EventID               int64  `json:"event_id"`
	ParticipantID         int64  `json:"participant_id"`
	PlacementPointsSum    int    `json:"placement_points_sum"`
	ScoreSum              Points `json:"raw_score_sum"`
	FinalPlacement        int    `json:"final_placement"`
	QualifiedForNationals bool   `json:"qualified_for_nationals"`
	IsAdvancement         bool   `json:"is_advancement"`
	GenerationID          string `json:"generation_id,omitempty"`
}
