package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestStatsInput_ValidRange(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.March, Day: 1}

	assert.True(t, StatsInput{Start: start, End: start}.ValidRange())
	assert.True(t, StatsInput{Start: start, End: start.AddDays(MaxStatsDays - 1)}.ValidRange())
	assert.False(t, StatsInput{Start: start, End: start.AddDays(MaxStatsDays)}.ValidRange())
	assert.False(t, StatsInput{Start: start, End: start.AddDays(-1)}.ValidRange())
	assert.False(t, StatsInput{Start: civil.Date{Year: 2024, Month: time.February, Day: 30}, End: start}.ValidRange())
}

func TestWeeklyStats_Add(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.March, Day: 4}
	w := NewWeeklyStats(start, start.AddDays(6), 3)

	w.Add(HabitStat{HabitID: "a", DaysScheduled: 3, DaysCompleted: 3})
	w.Add(HabitStat{HabitID: "b", DaysScheduled: 1, DaysCompleted: 0})
	w.Add(HabitStat{HabitID: "c"})

	assert.Equal(t, 100.0, w.HabitStats[0].CompletionRate)
	assert.Equal(t, 0.0, w.HabitStats[1].CompletionRate)
	assert.Equal(t, 0.0, w.HabitStats[2].CompletionRate, "never due means no rate")
	assert.Equal(t, 75.0, w.OverallRate)
}
