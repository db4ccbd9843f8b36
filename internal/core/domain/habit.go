package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidTarget      = errors.New("target cannot be negative")
	ErrHabitArchived      = errors.New("cannot update an archived habit")
	ErrInvalidHabitType   = errors.New("invalid habit type (must be boolean, numeric, or timer)")
	ErrInvalidReminder    = errors.New("invalid reminder format (must be HH:MM 24h)")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	HabitTypeBoolean = "boolean"
	HabitTypeNumeric = "numeric"
	HabitTypeTimer   = "timer"
	DefaultIcon      = "default_icon"
	MaxTitleLen      = 100
	MaxDescLen       = 500
)

type Habit struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	SortOrder    int     `json:"sort_order"`
	Type         string  `json:"type"`
	ReminderTime *string `json:"reminder_time,omitempty"`
	TargetValue  int     `json:"target_value"`
	Unit         string  `json:"unit"`

	ScheduleType schedule.Type  `json:"schedule_type"`
	ScheduleDays []int          `json:"schedule_days,omitempty"`
	StartDate    *civil.Date    `json:"start_date,omitempty"`
	EndDate      *civil.Date    `json:"end_date,omitempty"`
	StreakPolicy streaks.Policy `json:"streak_policy"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// HabitChanges carries the user-editable attributes of a habit.
type HabitChanges struct {
	Title        string
	Description  string
	Color        string
	Icon         string
	Type         string
	ReminderTime string
	Unit         string
	TargetValue  int
	Schedule     schedule.Descriptor
	StreakPolicy streaks.Policy
}

func validate(c HabitChanges) (int, error) {
	trimmedTitle := strings.TrimSpace(c.Title)
	if trimmedTitle == "" {
		return 0, ErrHabitTitleEmpty
	}
	if len(trimmedTitle) > MaxTitleLen {
		return 0, ErrHabitTitleTooLong
	}

	if len(strings.TrimSpace(c.Description)) > MaxDescLen {
		return 0, ErrHabitDescTooLong
	}

	switch c.Type {
	case HabitTypeBoolean, HabitTypeNumeric, HabitTypeTimer:
	default:
		return 0, ErrInvalidHabitType
	}

	finalTarget := c.TargetValue
	if c.Type == HabitTypeBoolean {
		finalTarget = 1
	} else if c.TargetValue < 0 {
		return 0, ErrInvalidTarget
	} else if c.TargetValue == 0 {
		finalTarget = 1
	}

	if c.ReminderTime != "" && !reminderRegex.MatchString(c.ReminderTime) {
		return 0, ErrInvalidReminder
	}

	if c.Color != "" && !colorRegex.MatchString(c.Color) {
		return 0, ErrInvalidColor
	}

	if err := c.Schedule.Validate(); err != nil {
		return 0, err
	}

	if _, err := streaks.ParsePolicy(string(c.StreakPolicy)); err != nil {
		return 0, err
	}

	return finalTarget, nil
}

func NewHabit(title, userID string) (*Habit, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, ErrHabitTitleEmpty
	}
	if len(trimmed) > MaxTitleLen {
		return nil, ErrHabitTitleTooLong
	}

	now := time.Now().UTC()

	return &Habit{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        trimmed,
		Icon:         DefaultIcon,
		Type:         HabitTypeBoolean,
		TargetValue:  1,
		ScheduleType: schedule.Daily,
		StreakPolicy: streaks.CalendarDays,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (h *Habit) Update(c HabitChanges) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	safeTarget, err := validate(c)
	if err != nil {
		return err
	}

	icon := c.Icon
	if icon == "" {
		icon = DefaultIcon
	}

	var remPtr *string
	if c.ReminderTime != "" {
		rem := c.ReminderTime
		remPtr = &rem
	}

	policy, _ := streaks.ParsePolicy(string(c.StreakPolicy))
	sched := c.Schedule.Normalize()

	h.Title = strings.TrimSpace(c.Title)
	h.Description = strings.TrimSpace(c.Description)
	h.Color = c.Color
	h.Icon = icon
	h.Type = c.Type
	h.ReminderTime = remPtr
	h.Unit = c.Unit
	h.TargetValue = safeTarget
	h.ScheduleType = sched.Type
	h.ScheduleDays = sched.Days
	h.StartDate = sched.StartDate
	h.EndDate = sched.EndDate
	h.StreakPolicy = policy

	h.UpdatedAt = time.Now().UTC()

	return nil
}

// Schedule returns the descriptor the engine evaluates for this habit.
// Habits stored without a schedule type are daily.
func (h *Habit) Schedule() schedule.Descriptor {
	t := h.ScheduleType
	if t == "" {
		t = schedule.Daily
	}
	return schedule.Descriptor{
		Type:      t,
		Days:      h.ScheduleDays,
		StartDate: h.StartDate,
		EndDate:   h.EndDate,
	}
}

// Policy returns the streak policy, falling back to calendar days for rows
// written before the column existed.
func (h *Habit) Policy() streaks.Policy {
	p, err := streaks.ParsePolicy(string(h.StreakPolicy))
	if err != nil {
		return streaks.CalendarDays
	}
	return p
}

// IsCompletion reports whether the accumulated value of a day meets the target.
func (h *Habit) IsCompletion(value int) bool {
	target := h.TargetValue
	if target < 1 {
		target = 1
	}
	return value >= target
}

// Records folds entries into one completion record per calendar day in loc.
// Values of entries on the same day are summed; deleted entries are skipped.
// The result is ordered by date.
func (h *Habit) Records(entries []*HabitEntry, loc *time.Location) []streaks.Record {
	if loc == nil {
		loc = time.UTC
	}

	totals := make(map[civil.Date]int)
	for _, e := range entries {
		if e == nil || e.DeletedAt != nil {
			continue
		}
		totals[e.Day(loc)] += e.Value
	}

	records := make([]streaks.Record, 0, len(totals))
	for day, total := range totals {
		v := total
		records = append(records, streaks.Record{
			Date:      day,
			Completed: h.IsCompletion(total),
			Value:     &v,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records
}

func (h *Habit) UpdateStreak(current, longest int) {
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
