package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
)

func TestStatsService_GetWeeklyStats(t *testing.T) {
	ctx := context.Background()
	userID := "user-stats-1"

	startDate := civil.Date{Year: 2024, Month: time.January, Day: 10}
	endDate := civil.Date{Year: 2024, Month: time.January, Day: 12}
	rangeEnd := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	at := func(d civil.Date, hour int) time.Time { return d.In(time.UTC).Add(time.Duration(hour) * time.Hour) }

	t.Run("Success: Calculates rates and fills missing days correctly", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)

		svc := services.NewStatsService(habitRepo, entryRepo)

		habits := []*domain.Habit{
			{ID: "h1", UserID: userID, Title: "Drink Water", Type: domain.HabitTypeNumeric, TargetValue: 2000, Unit: "ml", ScheduleType: schedule.Daily, CurrentStreak: 4, LongestStreak: 9},
			{ID: "h2", UserID: userID, Title: "Read", TargetValue: 1, Unit: "pages", ScheduleType: schedule.Daily},
		}
		habitRepo.On("ListByUserID", ctx, userID).Return(habits, nil)

		entries := []*domain.HabitEntry{
			{ID: "e1", HabitID: "h1", UserID: userID, Value: 2500, CompletionDate: at(startDate, 8)},
			{ID: "e2", HabitID: "h1", UserID: userID, Value: 500, CompletionDate: at(endDate, 0)},

			{ID: "e3", HabitID: "h2", UserID: userID, Value: 5, CompletionDate: at(endDate, 0)},
		}

		entryRepo.On("ListByUserIDAndDateRange", ctx, userID, startDate.In(time.UTC), rangeEnd).Return(entries, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: endDate})

		require.NoError(t, err)
		require.NotNil(t, stats)

		assert.Equal(t, 2, stats.TotalHabits)
		assert.Equal(t, startDate, stats.StartDate)
		assert.Equal(t, endDate, stats.EndDate)

		h1 := findHabitStat(stats.HabitStats, "h1")
		require.NotNil(t, h1)
		assert.Equal(t, 3000, h1.TotalValue)
		assert.Equal(t, 3, h1.DaysScheduled)
		assert.Equal(t, 1, h1.DaysCompleted)
		assert.InDelta(t, 33.33, h1.CompletionRate, 0.1)
		assert.Equal(t, []int{2500, 0, 500}, h1.DailyProgress)
		assert.Equal(t, 4, h1.CurrentStreak)
		assert.Equal(t, 9, h1.LongestStreak)

		h2 := findHabitStat(stats.HabitStats, "h2")
		require.NotNil(t, h2)
		assert.Equal(t, 5, h2.TotalValue)
		assert.Equal(t, []int{0, 0, 5}, h2.DailyProgress)

		assert.InDelta(t, 33.33, stats.OverallRate, 0.1)
		entryRepo.AssertExpectations(t)
	})

	t.Run("Success: Rate only counts days the habit was due", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)
		svc := services.NewStatsService(habitRepo, entryRepo)

		// Mon 2024-01-08 .. Sun 2024-01-14, due Mon/Wed/Fri.
		weekStart := civil.Date{Year: 2024, Month: time.January, Day: 8}
		weekEnd := weekStart.AddDays(6)
		mwf := &domain.Habit{ID: "gym", UserID: userID, TargetValue: 1, ScheduleType: schedule.Weekly, ScheduleDays: []int{1, 3, 5}}
		habitRepo.On("ListByUserID", ctx, userID).Return([]*domain.Habit{mwf}, nil)

		day := func(d int) time.Time { return time.Date(2024, 1, d, 18, 0, 0, 0, time.UTC) }
		entries := []*domain.HabitEntry{
			{HabitID: "gym", Value: 1, CompletionDate: day(8)},
			{HabitID: "gym", Value: 1, CompletionDate: day(10)},
			{HabitID: "gym", Value: 1, CompletionDate: day(13)}, // Saturday bonus
		}
		entryRepo.On("ListByUserIDAndDateRange", ctx, userID, mock.Anything, mock.Anything).Return(entries, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: weekStart, End: weekEnd})
		require.NoError(t, err)

		gym := findHabitStat(stats.HabitStats, "gym")
		require.NotNil(t, gym)
		assert.Equal(t, 3, gym.DaysScheduled)
		assert.Equal(t, 2, gym.DaysCompleted)
		assert.InDelta(t, 66.67, gym.CompletionRate, 0.1)
		assert.Equal(t, []int{1, 0, 1, 0, 0, 1, 0}, gym.DailyProgress)
		assert.Equal(t, 3, gym.TotalValue)
	})

	t.Run("Success: Location moves late entries to the next day", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)
		svc := services.NewStatsService(habitRepo, entryRepo)
		tokyo := time.FixedZone("JST", 9*3600)

		habitRepo.On("ListByUserID", ctx, userID).Return([]*domain.Habit{{ID: "h1", TargetValue: 1}}, nil)
		entries := []*domain.HabitEntry{{HabitID: "h1", Value: 1, CompletionDate: time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)}}
		entryRepo.On("ListByUserIDAndDateRange", ctx, userID,
			time.Date(2024, 1, 10, 0, 0, 0, 0, tokyo), time.Date(2024, 1, 13, 0, 0, 0, 0, tokyo),
		).Return(entries, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: endDate, Location: tokyo})
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1, 0}, stats.HabitStats[0].DailyProgress)
		entryRepo.AssertExpectations(t)
	})

	t.Run("Edge Case: No Habits returns zero stats", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)
		svc := services.NewStatsService(habitRepo, entryRepo)

		habitRepo.On("ListByUserID", ctx, userID).Return([]*domain.Habit{}, nil)
		entryRepo.On("ListByUserIDAndDateRange", ctx, userID, mock.Anything, mock.Anything).Return([]*domain.HabitEntry{}, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: endDate})

		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalHabits)
		assert.Equal(t, 0.0, stats.OverallRate)
		assert.Empty(t, stats.HabitStats)
	})

	t.Run("Fail: Inverted range", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		svc := services.NewStatsService(habitRepo, new(MockHabitEntryRepo))

		_, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: endDate, End: startDate})

		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
		habitRepo.AssertNotCalled(t, "ListByUserID", mock.Anything, mock.Anything)
	})

	t.Run("Fail: Range longer than a year", func(t *testing.T) {
		svc := services.NewStatsService(new(MockHabitRepo), new(MockHabitEntryRepo))

		_, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: startDate.AddDays(800)})

		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("Fail: Habit Repo Error propagates", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)
		svc := services.NewStatsService(habitRepo, entryRepo)

		dbErr := errors.New("db connection lost")
		habitRepo.On("ListByUserID", ctx, userID).Return(nil, dbErr)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: endDate})

		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, stats)
	})

	t.Run("Fail: Entry Repo Error propagates", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		entryRepo := new(MockHabitEntryRepo)
		svc := services.NewStatsService(habitRepo, entryRepo)

		habitRepo.On("ListByUserID", ctx, userID).Return([]*domain.Habit{{ID: "h1"}}, nil)

		dbErr := errors.New("query timeout")
		entryRepo.On("ListByUserIDAndDateRange", ctx, userID, mock.Anything, mock.Anything).Return(nil, dbErr)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: userID, Start: startDate, End: endDate})

		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, stats)
	})
}

func findHabitStat(stats []domain.HabitStat, habitID string) *domain.HabitStat {
	for _, s := range stats {
		if s.HabitID == habitID {
			return &s
		}
	}
	return nil
}
