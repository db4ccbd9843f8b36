package services

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

type StatsService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.EntryHistoryReader
}

func NewStatsService(habitRepo domain.HabitRepository, entryRepo domain.EntryHistoryReader) *StatsService {
	return &StatsService{habitRepo: habitRepo, entryRepo: entryRepo}
}

// GetWeeklyStats rates every habit against the days of the period it was
// due. Completions on days the habit was not due show up in DailyProgress
// and TotalValue but do not move the rate.
func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	if !input.ValidRange() {
		return nil, domain.ErrInvalidDateRange
	}
	loc := input.Location
	if loc == nil {
		loc = time.UTC
	}

	habits, err := s.habitRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.ListByUserIDAndDateRange(ctx, input.UserID, input.Start.In(loc), input.End.AddDays(1).In(loc))
	if err != nil {
		return nil, err
	}

	byHabit := make(map[string][]*domain.HabitEntry)
	for _, e := range entries {
		byHabit[e.HabitID] = append(byHabit[e.HabitID], e)
	}

	out := domain.NewWeeklyStats(input.Start, input.End, len(habits))
	for _, h := range habits {
		out.Add(rateHabit(h, h.Records(byHabit[h.ID], loc), input.Start, input.End))
	}
	return out, nil
}

func rateHabit(h *domain.Habit, records []streaks.Record, from, to civil.Date) domain.HabitStat {
	stat := domain.HabitStat{
		HabitID:       h.ID,
		HabitTitle:    h.Title,
		Color:         h.Color,
		Icon:          h.Icon,
		TargetValue:   h.TargetValue,
		Unit:          h.Unit,
		DailyProgress: make([]int, 0, to.DaysSince(from)+1),
		CurrentStreak: h.CurrentStreak,
		LongestStreak: h.LongestStreak,
	}

	byDate := make(map[civil.Date]streaks.Record, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	sched := h.Schedule()
	for d := from; !d.After(to); d = d.AddDays(1) {
		rec := byDate[d]
		val := 0
		if rec.Value != nil {
			val = *rec.Value
		}
		stat.TotalValue += val
		stat.DailyProgress = append(stat.DailyProgress, val)

		if sched.IsScheduled(d) {
			stat.DaysScheduled++
			if rec.Completed {
				stat.DaysCompleted++
			}
		}
	}
	return stat
}
