package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

var ErrHabitNotInFile = errors.New("habit not found in file")

// habitFile is the on-disk format:
//
//	habits:
//	  - id: gym
//	    title: Gym
//	    schedule_type: WEEKLY
//	    schedule_days: [1, 3, 5]
//	    streak_policy: scheduled_days
//	    records:
//	      - {date: 2024-03-04, completed: true}
type habitFile struct {
	Habits []fileHabit `yaml:"habits"`
}

type fileHabit struct {
	ID                  string `yaml:"id"`
	Title               string `yaml:"title"`
	schedule.Descriptor `yaml:",inline"`
	StreakPolicy        string           `yaml:"streak_policy"`
	Records             []streaks.Record `yaml:"records"`
}

func (h fileHabit) label() string {
	if h.Title != "" {
		return h.Title
	}
	return h.ID
}

func (h fileHabit) policy() streaks.Policy {
	p, err := streaks.ParsePolicy(h.StreakPolicy)
	if err != nil {
		return streaks.CalendarDays
	}
	return p
}

func loadHabits(path string) ([]fileHabit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f habitFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range f.Habits {
		h := &f.Habits[i]
		if h.ID == "" {
			return nil, fmt.Errorf("habit #%d: id is required", i+1)
		}

		t, err := schedule.ParseType(string(h.Type))
		if err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		h.Type = t
		if err := h.Descriptor.Validate(); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		h.Descriptor = h.Descriptor.Normalize()

		if _, err := streaks.ParsePolicy(h.StreakPolicy); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
	}

	return f.Habits, nil
}

// selectHabits returns every habit, or only the one named by id.
func selectHabits(habits []fileHabit, id string) ([]fileHabit, error) {
	if id == "" {
		return habits, nil
	}
	for _, h := range habits {
		if h.ID == id {
			return []fileHabit{h}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrHabitNotInFile, id)
}
