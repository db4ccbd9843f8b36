package streaks

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
)

const (
	gridWeeks   = 6
	daysPerWeek = 7
)

type DayCell struct {
	Date               civil.Date `json:"date"`
	Completed          bool       `json:"completed"`
	Value              *int       `json:"value,omitempty"`
	IsScheduled        bool       `json:"is_scheduled"`
	IsToday            bool       `json:"is_today"`
	IsInCurrentStreak  bool       `json:"is_in_current_streak"`
	IsInDisplayedMonth bool       `json:"is_in_displayed_month"`
}

type RunKind int

const (
	RunNone RunKind = iota
	RunCompleted
	RunScheduled
)

func (k RunKind) String() string {
	switch k {
	case RunCompleted:
		return "completed"
	case RunScheduled:
		return "scheduled"
	}
	return "none"
}

func (k RunKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RunKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "completed":
		*k = RunCompleted
	case "scheduled":
		*k = RunScheduled
	case "none":
		*k = RunNone
	default:
		return fmt.Errorf("unknown run kind %q", text)
	}
	return nil
}

// Run is a maximal stretch of adjacent same-kind cells in one week.
// Start and End are inclusive indexes into Week.Days.
type Run struct {
	Kind  RunKind `json:"kind"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

func (r Run) Len() int { return r.End - r.Start + 1 }

// Position tells a renderer how a cell joins its neighbours.
type Position struct {
	Kind   RunKind `json:"kind"`
	First  bool    `json:"first"`
	Last   bool    `json:"last"`
	Joined bool    `json:"joined"`
}

type Week struct {
	Days [daysPerWeek]DayCell `json:"days"`
	Runs []Run                `json:"runs"`
}

// Position returns the run placement of the cell at index i (0 = Sunday).
// Cells outside any run get the zero Position.
func (w Week) Position(i int) Position {
	for _, r := range w.Runs {
		if i >= r.Start && i <= r.End {
			return Position{
				Kind:   r.Kind,
				First:  i == r.Start,
				Last:   i == r.End,
				Joined: r.Len() > 1,
			}
		}
	}
	return Position{}
}

type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks []Week     `json:"weeks"`
}

// Cells flattens the displayed weeks, Sunday first.
func (g Grid) Cells() []DayCell {
	cells := make([]DayCell, 0, len(g.Weeks)*daysPerWeek)
	for _, w := range g.Weeks {
		cells = append(cells, w.Days[:]...)
	}
	return cells
}

// MonthDays returns the number of days in the month, normalizing an out of
// range month the way time.Date does.
func MonthDays(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildCalendarGrid lays out the month as six Sunday-first weeks, fills every
// cell from records and the schedule, then drops the weeks that hold no day of
// the month. Every day of the month appears exactly once in the result.
//
// An out of range month is normalized (month 13 of 2024 is January 2025).
// When a date has several records the first one in input order wins.
func BuildCalendarGrid(year int, month time.Month, records []Record, d schedule.Descriptor, asOf civil.Date, currentStreak int) Grid {
	first := civil.DateOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	grid := Grid{Year: first.Year, Month: first.Month}

	byDate := make(map[civil.Date]Record, len(records))
	for _, r := range records {
		if _, ok := byDate[r.Date]; !ok {
			byDate[r.Date] = r
		}
	}

	inStreak := streakDates(records, asOf, currentStreak)
	start := first.AddDays(-schedule.Weekday(first))

	grid.Weeks = make([]Week, 0, gridWeeks)
	for w := 0; w < gridWeeks; w++ {
		var week Week
		hasMonthDay := false

		for i := 0; i < daysPerWeek; i++ {
			day := start.AddDays(w*daysPerWeek + i)
			cell := DayCell{
				Date:               day,
				IsScheduled:        schedule.IsScheduled(d, day),
				IsToday:            day == asOf,
				IsInDisplayedMonth: day.Year == grid.Year && day.Month == grid.Month,
			}
			if r, ok := byDate[day]; ok {
				cell.Completed = r.Completed
				if r.Value != nil {
					v := *r.Value
					cell.Value = &v
				}
			}
			_, cell.IsInCurrentStreak = inStreak[day]

			hasMonthDay = hasMonthDay || cell.IsInDisplayedMonth
			week.Days[i] = cell
		}

		if !hasMonthDay {
			continue
		}
		week.Runs = groupRuns(week.Days)
		grid.Weeks = append(grid.Weeks, week)
	}

	return grid
}

// streakDates picks the n most recent distinct completed dates not after asOf.
func streakDates(records []Record, asOf civil.Date, n int) map[civil.Date]struct{} {
	set := make(map[civil.Date]struct{}, max(n, 0))
	if n <= 0 {
		return set
	}

	var dates []civil.Date
	seen := make(map[civil.Date]struct{}, len(records))
	for _, r := range records {
		if !r.Completed || r.Date.After(asOf) {
			continue
		}
		if _, dup := seen[r.Date]; dup {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].After(dates[j])
	})

	for i := 0; i < n && i < len(dates); i++ {
		set[dates[i]] = struct{}{}
	}
	return set
}

func cellKind(c DayCell) RunKind {
	switch {
	case c.Completed:
		return RunCompleted
	case c.IsScheduled && c.IsInDisplayedMonth:
		return RunScheduled
	}
	return RunNone
}

func groupRuns(days [daysPerWeek]DayCell) []Run {
	runs := []Run{}

	for i := 0; i < daysPerWeek; i++ {
		kind := cellKind(days[i])
		if kind == RunNone {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].Kind == kind && runs[n-1].End == i-1 {
			runs[n-1].End = i
			continue
		}
		runs = append(runs, Run{Kind: kind, Start: i, End: i})
	}

	return runs
}
