package setsystem

import (
	"fmt"
	"strings"

	"github.com/roach88/batonset/internal/contest"
)

// Render prints the running order as plain text: one summary line per
// lane followed by one line per queue position. Flagged cells end in " !".
func Render(positions []contest.Position, lanes []LaneAssignment) string {
	var b strings.Builder
	for _, l := range lanes {
		judge := l.JudgeName
		if l.JudgeID == 0 {
			judge = "no judge"
		}
		fmt.Fprintf(&b, "Lane %d: %s, %s\n", l.Lane, judge, l.Total)
		for _, d := range l.Divisions {
			fmt.Fprintf(&b, "  %s\n", d)
		}
	}
	b.WriteString("\n")

	for _, p := range positions {
		if p.IsLunchBreak() {
			fmt.Fprintf(&b, "%3d | LUNCH BREAK\n", p.Number)
			continue
		}
		cells := make([]string, len(p.Lanes))
		for i, c := range p.Lanes {
			cells[i] = cellText(c)
		}
		fmt.Fprintf(&b, "%3d | %s\n", p.Number, strings.Join(cells, " | "))
	}
	return b.String()
}

func cellText(c contest.Cell) string {
	var s string
	switch v := c.(type) {
	case contest.Contestant:
		s = v.Name
	case contest.DivisionHeader:
		s = "[" + v.Division + "]"
	default:
		s = "-"
	}
	if c.Conflicted() {
		s += " !"
	}
	return s
}
