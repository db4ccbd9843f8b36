// Package streaks turns a habit's completion history into streak counts and
// a month calendar grid.
//
// Everything here is a pure function of its arguments: the caller passes the
// current date in explicitly and gets freshly allocated results back, so the
// functions are safe to call from any number of goroutines.
package streaks

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
)

var (
	ErrInvalidDate   = errors.New("invalid calendar date")
	ErrUnknownPolicy = errors.New("unknown streak policy (must be calendar_days or scheduled_days)")
)

// DateError reports a date that does not exist on the calendar, such as
// February 30. Streaks are never computed over such input.
type DateError struct {
	Field string
	Date  civil.Date
}

func (e *DateError) Error() string {
	return fmt.Sprintf("streaks: %s: %04d-%02d-%02d is not a valid calendar date",
		e.Field, e.Date.Year, int(e.Date.Month), e.Date.Day)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

// Record is one per-date completion fact for a habit.
type Record struct {
	Date      civil.Date `json:"date" yaml:"date"`
	Completed bool       `json:"completed" yaml:"completed"`
	Value     *int       `json:"value,omitempty" yaml:"value,omitempty"`
}

type Result struct {
	Current       int         `json:"current"`
	Longest       int         `json:"longest"`
	LastCompleted *civil.Date `json:"last_completed_date"`
}

// Policy selects what counts as a break in a streak.
type Policy string

const (
	// CalendarDays breaks a streak on any calendar day without a completion.
	CalendarDays Policy = "calendar_days"
	// ScheduledDays only breaks a streak on a day the habit was due and not
	// completed; days off the schedule are skipped.
	ScheduledDays Policy = "scheduled_days"
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CalendarDays), "calendar":
		return CalendarDays, nil
	case string(ScheduledDays), "scheduled":
		return ScheduledDays, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// ComputeStreaks counts streaks over consecutive calendar days.
//
// The current streak is the run ending on asOf when asOf is completed,
// otherwise the run ending on the latest completed date before asOf.
// Completions dated after asOf only affect Longest and LastCompleted.
func ComputeStreaks(records []Record, asOf civil.Date) (Result, error) {
	return Compute(records, schedule.Descriptor{Type: schedule.Daily}, asOf, CalendarDays)
}

// ComputeScheduledStreaks is ComputeStreaks where a day the habit was not
// due is skipped instead of breaking the run.
func ComputeScheduledStreaks(records []Record, d schedule.Descriptor, asOf civil.Date) (Result, error) {
	return Compute(records, d, asOf, ScheduledDays)
}

func Compute(records []Record, d schedule.Descriptor, asOf civil.Date, policy Policy) (Result, error) {
	if !asOf.IsValid() {
		return Result{}, &DateError{Field: "as_of", Date: asOf}
	}

	dates, err := completedDates(records)
	if err != nil {
		return Result{}, err
	}
	if len(dates) == 0 {
		return Result{}, nil
	}

	bridged := bridgeFunc(policy, d)

	last := dates[len(dates)-1]
	return Result{
		Current:       currentRun(dates, asOf, bridged),
		Longest:       longestRun(dates, bridged),
		LastCompleted: &last,
	}, nil
}

// completedDates returns the distinct completed dates in ascending order.
func completedDates(records []Record) ([]civil.Date, error) {
	seen := make(map[civil.Date]struct{}, len(records))
	dates := make([]civil.Date, 0, len(records))

	for _, r := range records {
		if !r.Completed {
			continue
		}
		if !r.Date.IsValid() {
			return nil, &DateError{Field: "completion", Date: r.Date}
		}
		if _, dup := seen[r.Date]; dup {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates, nil
}

// bridgeFunc reports whether two completed dates a < b belong to the same run.
func bridgeFunc(policy Policy, d schedule.Descriptor) func(a, b civil.Date) bool {
	if policy != ScheduledDays || d.Type == schedule.Daily {
		return func(a, b civil.Date) bool {
			return b.DaysSince(a) == 1
		}
	}

	return func(a, b civil.Date) bool {
		for day := a.AddDays(1); day.Before(b); day = day.AddDays(1) {
			if schedule.IsScheduled(d, day) {
				return false
			}
		}
		return true
	}
}

func currentRun(dates []civil.Date, asOf civil.Date, bridged func(a, b civil.Date) bool) int {
	anchor := sort.Search(len(dates), func(i int) bool {
		return dates[i].After(asOf)
	}) - 1
	if anchor < 0 {
		return 0
	}

	run := 1
	for i := anchor; i > 0; i-- {
		if !bridged(dates[i-1], dates[i]) {
			break
		}
		run++
	}
	return run
}

func longestRun(dates []civil.Date, bridged func(a, b civil.Date) bool) int {
	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if bridged(dates[i-1], dates[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
