package domain

import (
	"context"
	"errors"
	"time"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitConflict = errors.New("habit version conflict")
	ErrUnauthorized  = errors.New("resource belongs to another user")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	// A soft-deleted habit of the same user and ID is revived instead.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update modifies the state of an existing habit.
	// Implementations reject stale versions with ErrHabitConflict.
	Update(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit so the deletion can be synced.
	Delete(ctx context.Context, id string) error

	// GetChanges [SYNC] Returns only the deltas (changes) occurring after a specific date.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Habit, error)

	// UpdateStreaks stores the cached streak counters without touching the version.
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

// IsValidationError reports whether err comes from rejecting user input
// rather than from storage.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrHabitTitleEmpty, ErrHabitTitleTooLong, ErrHabitDescTooLong,
		ErrInvalidColor, ErrInvalidTarget, ErrInvalidHabitType, ErrInvalidReminder,
		ErrHabitArchived, ErrInvalidEntry, ErrInvalidDateRange,
		schedule.ErrUnknownType, schedule.ErrNoScheduleDays, schedule.ErrScheduleDayRange,
		schedule.ErrInvertedRange, schedule.ErrInvalidBound,
		streaks.ErrUnknownPolicy, streaks.ErrInvalidDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
