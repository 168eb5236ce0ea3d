// Package setsystem builds the running order ("set system") of a contest.
//
// A run is a pure function of the contest's registrations, events, lane
// judges and ruleset:
//
//	snapshot -> BuildDivisions -> Schedule -> Plan
//
// Divisions and lane assignments are rebuilt from scratch on every run and
// never persisted. The Plan's positions replace the stored running order
// wholesale; see engine.Runner.ScheduleContest.
package setsystem
