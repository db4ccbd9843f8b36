package domain

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// MaxStatsDays bounds stats and due-date windows, both ends included.
const MaxStatsDays = 366

var ErrInvalidDateRange = errors.New("invalid date range (end before start or longer than a year)")

// StatsInput selects the days [Start, End] as seen from Location (UTC when nil).
type StatsInput struct {
	UserID   string
	Start    civil.Date
	End      civil.Date
	Location *time.Location
}

// ValidRange reports whether Start..End is a usable stats window.
func (in StatsInput) ValidRange() bool {
	return in.Start.IsValid() && in.End.IsValid() &&
		!in.End.Before(in.Start) && in.End.DaysSince(in.Start) < MaxStatsDays
}

type WeeklyStats struct {
	StartDate   civil.Date  `json:"start_date"`
	EndDate     civil.Date  `json:"end_date"`
	TotalHabits int         `json:"total_habits"`
	OverallRate float64     `json:"overall_completion_rate"`
	HabitStats  []HabitStat `json:"habits"`
}

// HabitStat rates a habit against the days it was actually due.
// DailyProgress has one slot per day of the period, due or not. The streak
// counters are the ones last stored by the streak worker.
type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	HabitTitle     string  `json:"habit_title"`
	Color          string  `json:"color"`
	Icon           string  `json:"icon"`
	TargetValue    int     `json:"target_value"`
	Unit           string  `json:"unit"`
	TotalValue     int     `json:"total_value"`
	CompletionRate float64 `json:"completion_rate"`
	DaysScheduled  int     `json:"days_scheduled"`
	DaysCompleted  int     `json:"days_completed"`
	DailyProgress  []int   `json:"daily_progress"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func NewWeeklyStats(start, end civil.Date, habits int) *WeeklyStats {
	return &WeeklyStats{
		StartDate:   start,
		EndDate:     end,
		TotalHabits: habits,
		HabitStats:  make([]HabitStat, 0, habits),
	}
}

// Add appends a habit and refreshes the rates. The overall rate pools the
// due days of every habit.
func (w *WeeklyStats) Add(s HabitStat) {
	s.CompletionRate = percent(s.DaysCompleted, s.DaysScheduled)
	w.HabitStats = append(w.HabitStats, s)

	scheduled, completed := 0, 0
	for _, hs := range w.HabitStats {
		scheduled += hs.DaysScheduled
		completed += hs.DaysCompleted
	}
	w.OverallRate = percent(completed, scheduled)
}
