// Package schedule decides whether a habit is due on a given calendar date.
//
// Every comparison works on civil dates (year, month, day). Timestamps and
// zones never enter the evaluation, so a date is due or not regardless of
// where the caller lives or whether a DST switch happens that night.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrUnknownType      = errors.New("unknown schedule type (must be DAILY, WEEKLY or CUSTOM)")
	ErrNoScheduleDays   = errors.New("weekly schedule needs at least one day")
	ErrScheduleDayRange = errors.New("schedule days must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvertedRange    = errors.New("schedule start date is after end date")
	ErrInvalidBound     = errors.New("schedule bound is not a valid calendar date")
)

type Type string

const (
	Daily  Type = "DAILY"
	Weekly Type = "WEEKLY"
	Custom Type = "CUSTOM"
)

// ParseType accepts the canonical names in any case plus the frequency names
// older clients still send.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "":
		return Daily, nil
	case "weekly", "specific_days":
		return Weekly, nil
	case "custom", "range":
		return Custom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

type Descriptor struct {
	Type      Type        `json:"schedule_type" yaml:"schedule_type"`
	Days      []int       `json:"schedule_days,omitempty" yaml:"schedule_days,omitempty"`
	StartDate *civil.Date `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   *civil.Date `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

// IsScheduled reports whether the habit described by d is due on date.
// Invalid descriptors are never due; the function does not fail.
func IsScheduled(d Descriptor, date civil.Date) bool {
	switch d.Type {
	case Daily:
		return true

	case Weekly:
		wd := Weekday(date)
		for _, day := range d.Days {
			if day == wd {
				return true
			}
		}
		return false

	case Custom:
		if d.StartDate != nil && date.Before(*d.StartDate) {
			return false
		}
		if d.EndDate != nil && date.After(*d.EndDate) {
			return false
		}
		return true
	}

	return false
}

// IsScheduled is the method form of the package function.
func (d Descriptor) IsScheduled(date civil.Date) bool {
	return IsScheduled(d, date)
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func Weekday(date civil.Date) int {
	// The calendar date alone fixes the weekday; UTC is only the carrier.
	return int(date.In(time.UTC).Weekday())
}

func (d Descriptor) Validate() error {
	switch d.Type {
	case Daily:
		return nil

	case Weekly:
		if len(d.Days) == 0 {
			return ErrNoScheduleDays
		}
		for _, day := range d.Days {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: got %d", ErrScheduleDayRange, day)
			}
		}
		return nil

	case Custom:
		if d.StartDate != nil && !d.StartDate.IsValid() {
			return fmt.Errorf("%w: start %s", ErrInvalidBound, d.StartDate)
		}
		if d.EndDate != nil && !d.EndDate.IsValid() {
			return fmt.Errorf("%w: end %s", ErrInvalidBound, d.EndDate)
		}
		if d.StartDate != nil && d.EndDate != nil && d.StartDate.After(*d.EndDate) {
			return ErrInvertedRange
		}
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
}

// Normalize sorts and dedups Days and clears the fields the type ignores.
// The returned descriptor never shares memory with d.
func (d Descriptor) Normalize() Descriptor {
	out := Descriptor{Type: d.Type}

	switch d.Type {
	case Weekly:
		seen := make(map[int]bool, len(d.Days))
		for _, day := range d.Days {
			if !seen[day] {
				seen[day] = true
				out.Days = append(out.Days, day)
			}
		}
		sort.Ints(out.Days)

	case Custom:
		if d.StartDate != nil {
			s := *d.StartDate
			out.StartDate = &s
		}
		if d.EndDate != nil {
			e := *d.EndDate
			out.EndDate = &e
		}
	}

	return out
}

// DueDates lists every due date in [from, to], in order.
func DueDates(d Descriptor, from, to civil.Date) []civil.Date {
	if !from.IsValid() || !to.IsValid() || from.After(to) {
		return nil
	}

	var dates []civil.Date
	for day := from; !day.After(to); day = day.AddDays(1) {
		if IsScheduled(d, day) {
			dates = append(dates, day)
		}
	}
	return dates
}
