package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

type CreateHabitInput struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Color        string
	Icon         string
	Type         string
	ReminderTime string
	Unit         string
	TargetValue  int
	SortOrder    int
	ScheduleType string
	ScheduleDays []int
	StartDate    *civil.Date
	EndDate      *civil.Date
	StreakPolicy string
}

// UpdateHabitInput is a partial update: nil fields keep the stored value.
type UpdateHabitInput struct {
	ID           string
	UserID       string
	Title        *string
	Description  *string
	Color        *string
	Icon         *string
	Type         *string
	ReminderTime *string
	Unit         *string
	TargetValue  *int
	SortOrder    *int
	ScheduleType *string
	ScheduleDays []int
	StartDate    *civil.Date
	EndDate      *civil.Date
	StreakPolicy *string
	Archived     *bool
	Version      int
}

func mergeString(newVal *string, oldVal string) string {
	if newVal == nil {
		return oldVal
	}
	return *newVal
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, input.ID)
		switch {
		case err == nil && existing.UserID == input.UserID:
			return existing, nil
		case err == nil:
			return nil, domain.ErrHabitNotFound
		case !errors.Is(err, domain.ErrHabitNotFound):
			return nil, err
		}
	}

	habit, err := domain.NewHabit(input.Title, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.ID != "" {
		habit.ID = input.ID
	}

	changes, err := createChanges(input, habit)
	if err != nil {
		return nil, err
	}
	if err := habit.Update(changes); err != nil {
		return nil, err
	}
	habit.SortOrder = input.SortOrder

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func createChanges(input CreateHabitInput, habit *domain.Habit) (domain.HabitChanges, error) {
	schedType, err := schedule.ParseType(input.ScheduleType)
	if err != nil {
		return domain.HabitChanges{}, err
	}

	hType := input.Type
	if hType == "" {
		hType = habit.Type
	}

	return domain.HabitChanges{
		Title:        input.Title,
		Description:  input.Description,
		Color:        input.Color,
		Icon:         input.Icon,
		Type:         hType,
		ReminderTime: input.ReminderTime,
		Unit:         input.Unit,
		TargetValue:  input.TargetValue,
		Schedule: schedule.Descriptor{
			Type:      schedType,
			Days:      input.ScheduleDays,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
		},
		StreakPolicy: streaks.Policy(input.StreakPolicy),
	}, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

// Update merges the input into the stored habit. A habit the server has
// never seen is created when the client sends enough to build it.
func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID)
	if errors.Is(err, domain.ErrHabitNotFound) && input.Title != nil {
		return s.Create(ctx, upsertInput(input))
	}
	if err != nil {
		return nil, err
	}

	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	if input.Archived != nil && !*input.Archived {
		habit.Restore()
	}

	archiveOnly := input.Archived != nil && *input.Archived && habit.ArchivedAt != nil
	if !archiveOnly {
		if err := s.applyChanges(input, habit); err != nil {
			return nil, err
		}
	}

	if input.Archived != nil && *input.Archived {
		habit.Archive()
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) applyChanges(input UpdateHabitInput, habit *domain.Habit) error {
	changes, err := mergeChanges(input, habit)
	if err != nil {
		return err
	}
	if err := habit.Update(changes); err != nil {
		return err
	}
	if input.SortOrder != nil {
		return habit.ChangePosition(*input.SortOrder)
	}
	return nil
}

func mergeChanges(input UpdateHabitInput, habit *domain.Habit) (domain.HabitChanges, error) {
	sched := habit.Schedule()

	if input.ScheduleType != nil {
		t, err := schedule.ParseType(*input.ScheduleType)
		if err != nil {
			return domain.HabitChanges{}, err
		}
		sched.Type = t
	}
	if input.ScheduleDays != nil {
		sched.Days = input.ScheduleDays
	}
	if input.StartDate != nil {
		sched.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		sched.EndDate = input.EndDate
	}

	reminder := ""
	if habit.ReminderTime != nil {
		reminder = *habit.ReminderTime
	}

	target := habit.TargetValue
	if input.TargetValue != nil {
		target = *input.TargetValue
	}

	return domain.HabitChanges{
		Title:        mergeString(input.Title, habit.Title),
		Description:  mergeString(input.Description, habit.Description),
		Color:        mergeString(input.Color, habit.Color),
		Icon:         mergeString(input.Icon, habit.Icon),
		Type:         mergeString(input.Type, habit.Type),
		ReminderTime: mergeString(input.ReminderTime, reminder),
		Unit:         mergeString(input.Unit, habit.Unit),
		TargetValue:  target,
		Schedule:     sched,
		StreakPolicy: streaks.Policy(mergeString(input.StreakPolicy, string(habit.StreakPolicy))),
	}, nil
}

func upsertInput(input UpdateHabitInput) CreateHabitInput {
	in := CreateHabitInput{
		ID:           input.ID,
		UserID:       input.UserID,
		Title:        mergeString(input.Title, ""),
		Description:  mergeString(input.Description, ""),
		Color:        mergeString(input.Color, ""),
		Icon:         mergeString(input.Icon, ""),
		Type:         mergeString(input.Type, ""),
		ReminderTime: mergeString(input.ReminderTime, ""),
		Unit:         mergeString(input.Unit, ""),
		ScheduleType: mergeString(input.ScheduleType, ""),
		ScheduleDays: input.ScheduleDays,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		StreakPolicy: mergeString(input.StreakPolicy, ""),
	}
	if input.TargetValue != nil {
		in.TargetValue = *input.TargetValue
	}
	if input.SortOrder != nil {
		in.SortOrder = *input.SortOrder
	}
	return in
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if habit.UserID != userID {
		return domain.ErrHabitNotFound
	}

	return s.repo.Delete(ctx, id)
}
