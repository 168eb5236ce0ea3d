package setsystem

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
)

// BuildDivisions rebuilds the contest's divisions from its registrations.
//
// Registrations are grouped by (event type, status level, age division).
// Every contestant must fit the event's age range on the contest date and,
// when a status is recorded for the event type, the event's status level.
// All violations are reported together as one StructuralError.
//
// Entries inside a division are ordered by registration id. Divisions are
// returned ordered by name, then primary event id.
func BuildDivisions(snap *contest.Snapshot, rules ruleset.Ruleset) ([]contest.Division, error) {
	roster := contest.NewRoster(snap)

	regs := slices.Clone(snap.Registrations)
	slices.SortFunc(regs, func(a, b contest.Registration) int { return cmp.Compare(a.ID, b.ID) })

	groups := make(map[contest.DivisionKey]*contest.Division)
	violations := make(map[string]string)

	for _, reg := range regs {
		ev, ok := roster.Event(reg.EventID)
		if !ok || ev.ContestID != snap.Contest.ID {
			violations[regKey(reg)] = fmt.Sprintf("event %d is not part of contest %d", reg.EventID, snap.Contest.ID)
			continue
		}
		if reason := eligibility(reg, ev, snap.Contest, roster); reason != "" {
			violations[regKey(reg)] = reason
			continue
		}

		key := contest.KeyOf(ev)
		div, ok := groups[key]
		if !ok {
			div = &contest.Division{Key: key, Overhead: rules.DivisionOverhead}
			groups[key] = div
		}
		if !slices.Contains(div.EventIDs, ev.ID) {
			div.EventIDs = append(div.EventIDs, ev.ID)
		}
		div.Entries = append(div.Entries, contest.Entry{
			RegistrationID: reg.ID,
			EventID:        ev.ID,
			ParticipantID:  reg.ParticipantID,
			Duration:       rules.PerformanceTime(ev),
		})
	}

	if len(violations) > 0 {
		return nil, contest.NewStructuralError(snap.Contest.ID,
			fmt.Sprintf("%d registrations violate event constraints", len(violations)), violations)
	}

	out := make([]contest.Division, 0, len(groups))
	for _, d := range groups {
		slices.Sort(d.EventIDs)
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b contest.Division) int {
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(a.PrimaryEventID(), b.PrimaryEventID())
	})
	return out, nil
}

func regKey(r contest.Registration) string {
	return fmt.Sprintf("registration %d", r.ID)
}

// eligibility returns why a registration cannot compete in its event, or
// "" when it can. An AgeMax of zero leaves the range open above.
func eligibility(reg contest.Registration, ev contest.Event, c contest.Contest, roster *contest.Roster) string {
	p, ok := roster.Participant(reg.ParticipantID)
	if !ok {
		return fmt.Sprintf("participant %d does not exist", reg.ParticipantID)
	}
	if !c.Date.IsZero() && !p.Birthdate.IsZero() {
		age := p.AgeOn(c.Date)
		if age < ev.AgeMin || (ev.AgeMax > 0 && age > ev.AgeMax) {
			return fmt.Sprintf("%s is %d on contest day, outside %s ages %d-%d",
				p.DisplayName(), age, ev.Name(), ev.AgeMin, ev.AgeMax)
		}
	}
	if st, ok := roster.Status(p.ID, ev.Type); ok && st.Status != ev.Status {
		return fmt.Sprintf("%s competes %s at %s, not %s",
			p.DisplayName(), ev.Type, st.Status, ev.Status)
	}
	return ""
}
