package domain

import (
	"cloud.google.com/go/civil"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

type StreakSummary struct {
	HabitID           string         `json:"habit_id"`
	Policy            streaks.Policy `json:"policy"`
	AsOf              civil.Date     `json:"as_of"`
	Current           int            `json:"current_streak"`
	Longest           int            `json:"longest_streak"`
	LastCompletedDate *civil.Date    `json:"last_completed_date"`
}

type CalendarView struct {
	HabitID string        `json:"habit_id"`
	AsOf    civil.Date    `json:"as_of"`
	Streak  StreakSummary `json:"streak"`
	Grid    streaks.Grid  `json:"grid"`
}

type DueStatus struct {
	HabitID string     `json:"habit_id"`
	Date    civil.Date `json:"date"`
	Due     bool       `json:"due"`
}
