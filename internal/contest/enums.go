package contest

import (
	"fmt"
	"strings"
)

// Classification is the contest tier used for qualification cutoffs.
type Classification string

const (
	ClassAAAA Classification = "AAAA"
	ClassAAA  Classification = "AAA"
	ClassAA   Classification = "AA"
	ClassA    Classification = "A"
	ClassB    Classification = "B"
	ClassC    Classification = "C"
)

// Classifications lists every classification from highest to lowest tier.
var Classifications = []Classification{ClassAAAA, ClassAAA, ClassAA, ClassA, ClassB, ClassC}

// AgeDivision is the age bracket of an event.
type AgeDivision string

const (
	AgeTot      AgeDivision = "Tot"
	AgeJuvenile AgeDivision = "Juvenile"
	AgePreTeen  AgeDivision = "Pre-teen"
	AgeJunior   AgeDivision = "Junior"
	AgeSenior   AgeDivision = "Senior"
)

// AgeDivisions lists every age division from youngest to oldest.
var AgeDivisions = []AgeDivision{AgeTot, AgeJuvenile, AgePreTeen, AgeJunior, AgeSenior}

// StatusLevel is the skill tier of an event or a participant.
type StatusLevel string

const (
	StatusNovice       StatusLevel = "Novice"
	StatusBeginner     StatusLevel = "Beginner"
	StatusIntermediate StatusLevel = "Intermediate"
	StatusAdvanced     StatusLevel = "Advanced"
	StatusCollege      StatusLevel = "College"
)

// StatusLevels lists every status level from lowest to highest.
var StatusLevels = []StatusLevel{StatusNovice, StatusBeginner, StatusIntermediate, StatusAdvanced, StatusCollege}

// EventType is the kind of routine performed.
type EventType string

const (
	EventSoloBaton  EventType = "Solo Baton"
	EventXStrut     EventType = "X-Strut"
	EventTwoBaton   EventType = "2-Baton"
	EventThreeBaton EventType = "3-Baton"
	EventFlag       EventType = "Flag"
	EventModel      EventType = "Model"
	EventBasicStrut EventType = "Basic Strut"
	EventDuet       EventType = "Duet"
	EventTrio       EventType = "Trio"
	EventTeam       EventType = "Team"
)

// EventTypes lists every event type.
var EventTypes = []EventType{
	EventSoloBaton, EventXStrut, EventTwoBaton, EventThreeBaton, EventFlag,
	EventModel, EventBasicStrut, EventDuet, EventTrio, EventTeam,
}

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool { return contains(Classifications, c) }

// Valid reports whether a is a known age division.
func (a AgeDivision) Valid() bool { return contains(AgeDivisions, a) }

// Valid reports whether s is a known status level.
func (s StatusLevel) Valid() bool { return contains(StatusLevels, s) }

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool { return contains(EventTypes, t) }

// Rank returns the position of s in StatusLevels (Novice = 0), or -1.
func (s StatusLevel) Rank() int {
	for i, l := range StatusLevels {
		if l == s {
			return i
		}
	}
	return -1
}

// ParseClassification resolves a classification name, ignoring case.
func ParseClassification(s string) (Classification, error) {
	return parseEnum(Classifications, s, "classification")
}

// ParseAgeDivision resolves an age division name, ignoring case.
func ParseAgeDivision(s string) (AgeDivision, error) {
	return parseEnum(AgeDivisions, s, "age division")
}

// ParseStatusLevel resolves a status level name, ignoring case.
func ParseStatusLevel(s string) (StatusLevel, error) {
	return parseEnum(StatusLevels, s, "status level")
}

// ParseEventType resolves an event type name, ignoring case.
func ParseEventType(s string) (EventType, error) {
	return parseEnum(EventTypes, s, "event type")
}

func parseEnum[T ~string](known []T, s, what string) (T, error) {
	s = strings.TrimSpace(s)
	for _, k := range known {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	var zero T
	return zero, NewValidationError(what, fmt.Sprintf("unknown %s %q", what, s))
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
