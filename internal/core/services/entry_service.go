package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/workers"
)

// EntryService logs completions. Every write schedules a streak
// recomputation for the habit it touched.
type EntryService struct {
	repo      domain.HabitEntryRepository
	habitRepo domain.HabitRepository
	worker    *workers.StreakWorker
}

func NewEntryService(repo domain.HabitEntryRepository, habitRepo domain.HabitRepository, worker *workers.StreakWorker) *EntryService {
	return &EntryService{repo: repo, habitRepo: habitRepo, worker: worker}
}

// CreateEntryInput may carry a client-generated ID for offline sync.
type CreateEntryInput struct {
	ID             string
	HabitID        string
	UserID         string
	CompletionDate time.Time
	Value          int
	Notes          string
}

// UpdateEntryInput replaces value and notes. A non-zero CompletionDate moves
// the entry to another day; a zero Version skips the conflict check.
type UpdateEntryInput struct {
	ID             string
	UserID         string
	CompletionDate time.Time
	Value          int
	Notes          string
	Version        int
}

func (s *EntryService) ownHabit(ctx context.Context, habitID, userID string) error {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return err
	}
	if habit.UserID != userID {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*domain.HabitEntry, error) {
	entry := domain.NewHabitEntry(input.HabitID, input.UserID, input.CompletionDate, input.Value)
	entry.ID = input.ID
	entry.Notes = input.Notes
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.ownHabit(ctx, entry.HabitID, entry.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.worker.Enqueue(entry.HabitID)
	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, input UpdateEntryInput) (*domain.HabitEntry, error) {
	entry, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.Version > 0 && input.Version != entry.Version {
		return nil, domain.ErrEntryConflict
	}

	if err := entry.Revise(input.Value, input.Notes, input.CompletionDate); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.worker.Enqueue(entry.HabitID)
	return entry, nil
}

// GetByID hides entries of other users behind ErrUnauthorized.
func (s *EntryService) GetByID(ctx context.Context, id, userID string) (*domain.HabitEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return entry, nil
}

func (s *EntryService) ListByHabitID(ctx context.Context, habitID, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	if err := s.ownHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByHabitID(ctx, habitID, from, to)
}

func (s *EntryService) Delete(ctx context.Context, id, userID string) error {
	entry, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.worker.Enqueue(entry.HabitID)
	return nil
}

// GetDelta returns the entries changed after since, tombstones included.
func (s *EntryService) GetDelta(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return s.repo.GetChanges(ctx, userID, since)
}
