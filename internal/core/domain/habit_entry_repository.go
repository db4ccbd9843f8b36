package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEntryNotFound = errors.New("habit entry not found")
	ErrEntryConflict = errors.New("habit entry version conflict")
)

// EntryHistoryReader is the read side used by streak and stats computations.
// Soft-deleted entries are never returned.
type EntryHistoryReader interface {
	// ListAllByHabitID returns the complete history of one habit.
	ListAllByHabitID(ctx context.Context, habitID string) ([]*HabitEntry, error)
	// ListByUserIDAndDateRange covers every habit of a user, from <= completion_date < to.
	ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*HabitEntry, error)
}

type HabitEntryRepository interface {
	EntryHistoryReader

	// Create fails with ErrEntryConflict when the ID is already taken.
	Create(ctx context.Context, entry *HabitEntry) error
	// Update stores an entry whose Version was already bumped by the caller;
	// the row must still hold Version-1, otherwise ErrEntryConflict.
	Update(ctx context.Context, entry *HabitEntry) error
	// Delete tombstones the entry so it still shows up in GetChanges.
	Delete(ctx context.Context, id string, userID string) error

	GetByID(ctx context.Context, id string) (*HabitEntry, error)
	ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*HabitEntry, error)

	// GetChanges returns creations, updates and tombstones with
	// updated_at > since, oldest first.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*HabitEntry, error)
}
