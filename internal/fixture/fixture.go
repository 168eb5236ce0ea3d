// Package fixture reads contest data from YAML and imports it into a store.
//
// Entities reference each other by fixture key rather than database id, so
// one file can describe a whole contest:
//
//	coaches:
//	  - {key: carla, first_name: Carla, last_name: Diaz, studio: Étoile Twirl}
//	participants:
//	  - {key: ann, first_name: Ann, last_name: Lee, birthdate: 2017-03-01, coach: carla}
//	registrations:
//	  - {participant: ann, event: solo-juv}
//
// Unknown fields are rejected so a misspelt key fails loudly.
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is one contest fixture.
type File struct {
	Contest       Contest        `yaml:"contest"`
	Coaches       []Coach        `yaml:"coaches"`
	Participants  []Participant  `yaml:"participants"`
	Judges        []Judge        `yaml:"judges"`
	Lanes         []Lane         `yaml:"lanes"`
	Events        []Event        `yaml:"events"`
	Statuses      []Status       `yaml:"statuses"`
	Registrations []Registration `yaml:"registrations"`
	Scores        []Score        `yaml:"scores"`
}

// Contest describes the contest day.
type Contest struct {
	Name           string `yaml:"name"`
	Date           string `yaml:"date"`
	Location       string `yaml:"location"`
	Classification string `yaml:"classification"`
	Lanes          int    `yaml:"lanes"`
	Notes          string `yaml:"notes"`
}

// Coach is a coach entry.
type Coach struct {
	Key       string `yaml:"key"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Studio    string `yaml:"studio"`
	IsJudge   bool   `yaml:"is_judge"`
}

// Participant is a participant entry. Coach is a coach key.
type Participant struct {
	Key         string `yaml:"key"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	Birthdate   string `yaml:"birthdate"`
	Gender      string `yaml:"gender"`
	Citizenship string `yaml:"citizenship"`
	Coach       string `yaml:"coach"`
	Studio      string `yaml:"studio"`
	Notes       string `yaml:"notes"`
}

// Judge is a judge entry. Coach is set when a coach serves as judge.
type Judge struct {
	Key       string `yaml:"key"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Coach     string `yaml:"coach"`
}

// Lane puts a judge on a lane.
type Lane struct {
	Lane  int    `yaml:"lane"`
	Judge string `yaml:"judge"`
}

// Event is an event entry. Times are in seconds.
type Event struct {
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	Status   string `yaml:"status"`
	Age      string `yaml:"age"`
	AgeMin   int    `yaml:"age_min"`
	AgeMax   int    `yaml:"age_max"`
	TimeMin  int    `yaml:"time_min"`
	TimeMax  int    `yaml:"time_max"`
	AreaSize string `yaml:"area_size"`
}

// Status records a participant's level and wins for an event type.
type Status struct {
	Participant string `yaml:"participant"`
	Type        string `yaml:"type"`
	Status      string `yaml:"status"`
	Wins        int    `yaml:"wins"`
}

// Registration enters a participant into an event.
type Registration struct {
	Participant string `yaml:"participant"`
	Event       string `yaml:"event"`
	Date        string `yaml:"date"`
}

// Score is one judge's score. Raw is a decimal string so it stays exact.
type Score struct {
	Event       string    `yaml:"event"`
	Participant string    `yaml:"participant"`
	Judge       string    `yaml:"judge"`
	Raw         string    `yaml:"raw"`
	Penalties   Penalties `yaml:"penalties"`
	Flagged     bool      `yaml:"flagged"`
	Notes       string    `yaml:"notes"`
}

// Penalties are the penalty tallies of a Score.
type Penalties struct {
	Drops          int `yaml:"drops"`
	TwoHand        int `yaml:"two_hand"`
	Falls          int `yaml:"falls"`
	Breaks         int `yaml:"breaks"`
	TimeSeconds    int `yaml:"time_seconds"`
	NoSalute       int `yaml:"no_salute"`
	ImproperSalute int `yaml:"improper_salute"`
}

// Parse decodes a fixture with strict field checking.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// validate checks keys before anything touches the store.
func (f *File) validate() error {
	if f.Contest.Name == "" {
		return fmt.Errorf("contest.name is required")
	}
	if f.Contest.Date == "" {
		return fmt.Errorf("contest.date is required")
	}

	keys := map[string]map[string]bool{
		"coach": {}, "participant": {}, "judge": {}, "event": {},
	}
	add := func(kind, key string) error {
		if key == "" {
			return fmt.Errorf("%s without key", kind)
		}
		if keys[kind][key] {
			return fmt.Errorf("duplicate %s key %q", kind, key)
		}
		keys[kind][key] = true
		return nil
	}
	ref := func(kind, key, where string) error {
		if key != "" && !keys[kind][key] {
			return fmt.Errorf("%s references unknown %s %q", where, kind, key)
		}
		return nil
	}
	need := func(kind, key, where string) error {
		if key == "" {
			return fmt.Errorf("%s has no %s", where, kind)
		}
		return ref(kind, key, where)
	}

	for _, c := range f.Coaches {
		if err := add("coach", c.Key); err != nil {
			return err
		}
	}
	for _, p := range f.Participants {
		if err := add("participant", p.Key); err != nil {
			return err
		}
		if err := ref("coach", p.Coach, "participant "+p.Key); err != nil {
			return err
		}
	}
	for _, j := range f.Judges {
		if err := add("judge", j.Key); err != nil {
			return err
		}
		if err := ref("coach", j.Coach, "judge "+j.Key); err != nil {
			return err
		}
	}
	for _, e := range f.Events {
		if err := add("event", e.Key); err != nil {
			return err
		}
	}
	for _, l := range f.Lanes {
		if err := need("judge", l.Judge, fmt.Sprintf("lane %d", l.Lane)); err != nil {
			return err
		}
	}
	for _, s := range f.Statuses {
		if err := need("participant", s.Participant, "status"); err != nil {
			return err
		}
	}
	for _, r := range f.Registrations {
		where := fmt.Sprintf("registration %s/%s", r.Participant, r.Event)
		if err := need("participant", r.Participant, where); err != nil {
			return err
		}
		if err := need("event", r.Event, where); err != nil {
			return err
		}
	}
	for _, s := range f.Scores {
		where := fmt.Sprintf("score %s/%s/%s", s.Event, s.Participant, s.Judge)
		if err := need("event", s.Event, where); err != nil {
			return err
		}
		if err := need("participant", s.Participant, where); err != nil {
			return err
		}
		if err := need("judge", s.Judge, where); err != nil {
			return err
		}
	}
	return nil
}
