package contest

import (
	"fmt"
	"time"
)

// Snapshot is a consistent read of everything a scheduling or tabulation
// run needs for one contest. Revision is the contest data revision at the
// time of the read; persisting a run's output is rejected if it moved.
type Snapshot struct {
	Contest       Contest
	Events        []Event
	Participants  []Participant
	Coaches       []Coach
	Judges        []Judge
	LaneJudges    []LaneJudge
	Registrations []Registration
	Statuses      []ParticipantStatus
	Scores        []Score
}

// Revision returns the contest data revision captured by the snapshot.
func (s *Snapshot) Revision() int64 { return s.Contest.Revision }

// DivisionKey identifies a division: the contestants who compete together.
type DivisionKey struct {
	Type   EventType   `json:"event_type"`
	Status StatusLevel `json:"status_level"`
	Age    AgeDivision `json:"age_division"`
}

// Name is the human-readable division label.
func (k DivisionKey) Name() string {
	return fmt.Sprintf("%s - %s - %s", k.Type, k.Status, k.Age)
}

// KeyOf returns the division key of an event.
func KeyOf(e Event) DivisionKey {
	return DivisionKey{Type: e.Type, Status: e.Status, Age: e.Age}
}

// Entry is one contestant's slot in a division.
type Entry struct {
	RegistrationID int64         `json:"registration_id"`
	EventID        int64         `json:"event_id"`
	ParticipantID  int64         `json:"participant_id"`
	Duration       time.Duration `json:"duration"`
}

// Division groups the contestants of one (event type, status, age) triple.
// Divisions are rebuilt from registrations on every scheduling run and are
// never persisted.
type Division struct {
	Key      DivisionKey `json:"key"`
	EventIDs []int64     `json:"event_ids"`
	Entries  []Entry     `json:"entries"`

	// Overhead is the fixed announcement/changeover time of the division,
	// charged to its header cell.
	Overhead time.Duration `json:"overhead"`
}

// Name is the division label.
func (d Division) Name() string { return d.Key.Name() }

// PrimaryEventID returns the first event of the division, 0 when none.
func (d Division) PrimaryEventID() int64 {
	if len(d.EventIDs) == 0 {
		return 0
	}
	return d.EventIDs[0]
}

// Estimated is the division's estimated duration: every contestant's
// performance time plus the fixed overhead.
func (d Division) Estimated() time.Duration {
	total := d.Overhead
	for _, e := range d.Entries {
		total += e.Duration
	}
	return total
}

// Roster indexes snapshot entities by id for the pure computations.
type Roster struct {
	participants map[int64]Participant
	coaches      map[int64]Coach
	judges       map[int64]Judge
	events       map[int64]Event
	statuses     map[statusKey]ParticipantStatus
}

type statusKey struct {
	participantID int64
	eventType     EventType
}

// NewRoster indexes the entities of a snapshot.
func NewRoster(s *Snapshot) *Roster {
	r := &Roster{
		participants: make(map[int64]Participant, len(s.Participants)),
		coaches:      make(map[int64]Coach, len(s.Coaches)),
		judges:       make(map[int64]Judge, len(s.Judges)),
		events:       make(map[int64]Event, len(s.Events)),
		statuses:     make(map[statusKey]ParticipantStatus, len(s.Statuses)),
	}
	for _, p := range s.Participants {
		r.participants[p.ID] = p
	}
	for _, c := range s.Coaches {
		r.coaches[c.ID] = c
	}
	for _, j := range s.Judges {
		r.judges[j.ID] = j
	}
	for _, e := range s.Events {
		r.events[e.ID] = e
	}
	for _, st := range s.Statuses {
		r.statuses[statusKey{st.ParticipantID, st.EventType}] = st
	}
	return r
}

// Participant looks up a participant by id.
func (r *Roster) Participant(id int64) (Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// Coach looks up a coach by id.
func (r *Roster) Coach(id int64) (Coach, bool) {
	c, ok := r.coaches[id]
	return c, ok
}

// Judge looks up a judge by id.
func (r *Roster) Judge(id int64) (Judge, bool) {
	j, ok := r.judges[id]
	return j, ok
}

// Event looks up an event by id.
func (r *Roster) Event(id int64) (Event, bool) {
	e, ok := r.events[id]
	return e, ok
}

// Status returns a participant's recorded status for an event type.
func (r *Roster) Status(participantID int64, t EventType) (ParticipantStatus, bool) {
	st, ok := r.statuses[statusKey{participantID, t}]
	return st, ok
}

// ParticipantName returns the display name, or "#id" for unknown ids.
func (r *Roster) ParticipantName(id int64) string {
	if p, ok := r.participants[id]; ok {
		return p.DisplayName()
	}
	return fmt.Sprintf("#%d", id)
}

// EventSnapshot is a consistent read of one event for tabulation.
// Revision is the event data revision at the time of the read; it moves
// when the event's registrations or score content change.
type EventSnapshot struct {
	Contest       Contest
	Event         Event
	Registrations []Registration
	Scores        []Score
	Statuses      []ParticipantStatus
	Revision      int64
}

// PriorWins returns each registrant's recorded wins for the event type.
func (s *EventSnapshot) PriorWins() map[int64]int {
	wins := make(map[int64]int, len(s.Statuses))
	for _, st := range s.Statuses {
		if st.EventType == s.Event.Type {
			wins[st.ParticipantID] = st.Wins
		}
	}
	return wins
}
