package services

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/metrics"
)

// HistoryService answers read-only questions about a habit's past: streaks,
// the month calendar and whether a day is due. Every call takes the
// reference day explicitly; the service never reads the clock.
type HistoryService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.EntryHistoryReader
	loc       *time.Location
}

func NewHistoryService(habitRepo domain.HabitRepository, entryRepo domain.EntryHistoryReader, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{
		habitRepo: habitRepo,
		entryRepo: entryRepo,
		loc:       loc,
	}
}

// Location is the zone entry timestamps are read in.
func (s *HistoryService) Location() *time.Location {
	return s.loc
}

func (s *HistoryService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return habit, nil
}

func (s *HistoryService) records(ctx context.Context, habit *domain.Habit) ([]streaks.Record, error) {
	entries, err := s.entryRepo.ListAllByHabitID(ctx, habit.ID)
	if err != nil {
		return nil, err
	}
	return habit.Records(entries, s.loc), nil
}

func summarize(habit *domain.Habit, records []streaks.Record, asOf civil.Date) (*domain.StreakSummary, error) {
	res, err := streaks.Compute(records, habit.Schedule(), asOf, habit.Policy())
	if err != nil {
		return nil, err
	}
	return &domain.StreakSummary{
		HabitID:           habit.ID,
		Policy:            habit.Policy(),
		AsOf:              asOf,
		Current:           res.Current,
		Longest:           res.Longest,
		LastCompletedDate: res.LastCompleted,
	}, nil
}

func (s *HistoryService) Streaks(ctx context.Context, habitID, userID string, asOf civil.Date) (*domain.StreakSummary, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.records(ctx, habit)
	if err != nil {
		return nil, err
	}

	summary, err := summarize(habit, records, asOf)
	metrics.IncrementEngineEvaluation("streaks", err)
	return summary, err
}

func (s *HistoryService) Calendar(ctx context.Context, habitID, userID string, year int, month time.Month, asOf civil.Date) (*domain.CalendarView, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.records(ctx, habit)
	if err != nil {
		return nil, err
	}

	summary, err := summarize(habit, records, asOf)
	metrics.IncrementEngineEvaluation("calendar", err)
	if err != nil {
		return nil, err
	}

	return &domain.CalendarView{
		HabitID: habit.ID,
		AsOf:    asOf,
		Streak:  *summary,
		Grid:    streaks.BuildCalendarGrid(year, month, records, habit.Schedule(), asOf, summary.Current),
	}, nil
}

func (s *HistoryService) Due(ctx context.Context, habitID, userID string, date civil.Date) (*domain.DueStatus, error) {
	if !date.IsValid() {
		return nil, &streaks.DateError{Field: "date", Date: date}
	}

	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEngineEvaluation("due", nil)
	return &domain.DueStatus{
		HabitID: habit.ID,
		Date:    date,
		Due:     schedule.IsScheduled(habit.Schedule(), date),
	}, nil
}

// DueDates lists the days in [from, to] on which the habit is due.
func (s *HistoryService) DueDates(ctx context.Context, habitID, userID string, from, to civil.Date) ([]civil.Date, error) {
	if !from.IsValid() || !to.IsValid() || to.Before(from) || to.DaysSince(from) >= domain.MaxStatsDays {
		return nil, domain.ErrInvalidDateRange
	}

	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEngineEvaluation("due", nil)
	return schedule.DueDates(habit.Schedule(), from, to), nil
}
