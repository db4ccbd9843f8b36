package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

const weekHeader = "  Su   Mo   Tu   We   Th   Fr   Sa"

// cellMark: '*' in the current streak, '+' completed, '.' due and open.
func cellMark(c streaks.DayCell) byte {
	switch {
	case c.IsInCurrentStreak:
		return '*'
	case c.Completed:
		return '+'
	case c.IsScheduled:
		return '.'
	}
	return ' '
}

// renderCalendar prints one five-column cell per day. Today is prefixed with
// '>' and days outside the month are left blank.
func renderCalendar(w io.Writer, c calendarOut) {
	fmt.Fprintf(w, "%s  %s %d  (current %d, longest %d)\n",
		c.Title, c.Grid.Month, c.Grid.Year, c.Streak.Current, c.Streak.Longest)
	fmt.Fprintln(w, weekHeader)

	for _, week := range c.Grid.Weeks {
		var b strings.Builder
		for _, cell := range week.Days {
			if !cell.IsInDisplayedMonth {
				b.WriteString("     ")
				continue
			}
			prefix := byte(' ')
			if cell.IsToday {
				prefix = '>'
			}
			fmt.Fprintf(&b, "%c%3d%c", prefix, cell.Date.Day, cellMark(cell))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}
