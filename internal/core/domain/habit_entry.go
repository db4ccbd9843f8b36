package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
)

const MaxEntryNotesLength = 500

var ErrInvalidEntry = errors.New("invalid habit entry data")

// HabitEntry is one logged completion. CompletionDate is stored in UTC; the
// day it counts for depends on the location it is read in.
type HabitEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
	Value          int       `json:"value" db:"value"`
	Notes          string    `json:"notes" db:"notes"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewHabitEntry(habitID, userID string, at time.Time, value int) *HabitEntry {
	now := time.Now().UTC()
	return &HabitEntry{
		HabitID:        habitID,
		UserID:         userID,
		CompletionDate: at.UTC(),
		Value:          value,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Day is the calendar date the entry belongs to as seen from loc.
func (e *HabitEntry) Day(loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(e.CompletionDate.In(loc))
}

// Revise replaces value and notes and, when at is non-zero, moves the entry.
// The entry is left untouched if the result would be invalid. On success the
// version is bumped.
func (e *HabitEntry) Revise(value int, notes string, at time.Time) error {
	next := *e
	next.Value = value
	next.Notes = notes
	if !at.IsZero() {
		next.CompletionDate = at.UTC()
	}
	if err := next.Validate(); err != nil {
		return err
	}

	next.Version++
	next.UpdatedAt = time.Now().UTC()
	*e = next
	return nil
}

func invalidEntry(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidEntry}, args...)...)
}

func (e *HabitEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.HabitID) == "":
		return invalidEntry("habit_id is required")
	case strings.TrimSpace(e.UserID) == "":
		return invalidEntry("user_id is required")
	case e.Value < 0:
		return invalidEntry("value cannot be negative")
	case e.CompletionDate.IsZero():
		return invalidEntry("completion_date is required")
	case utf8.RuneCountInString(e.Notes) > MaxEntryNotesLength:
		return invalidEntry("notes exceed %d characters", MaxEntryNotesLength)
	}
	return nil
}
