package repository

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

func TestPostgresHabitRepository_Integration(t *testing.T) {
	db := setupTestDB(t)

	cleanup(t, db)
	defer cleanup(t, db)

	repo := NewPostgresHabitRepository(db)
	ctx := context.Background()

	var now time.Time
	err := db.QueryRow("SELECT NOW()").Scan(&now)
	require.NoError(t, err)

	userID := "test-user-habits-1"
	insertUser(t, db, userID, "habit-test@kanso.app", now)

	reminder := "08:00"
	habitID := uuid.New().String()
	start := civil.Date{Year: 2024, Month: time.March, Day: 4}

	newHabit := &domain.Habit{
		ID:           habitID,
		UserID:       userID,
		Title:        "Test Integration Habit",
		Description:  "Checking if SQL works",
		Color:        "#FFFFFF",
		Icon:         "dumbbell",
		SortOrder:    1,
		Type:         domain.HabitTypeBoolean,
		ReminderTime: &reminder,
		TargetValue:  1,
		Unit:         "times",
		ScheduleType: schedule.Weekly,
		ScheduleDays: []int{1, 3, 5},
		StartDate:    &start,
		StreakPolicy: streaks.ScheduledDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("Create Habit", func(t *testing.T) {
		err := repo.Create(ctx, newHabit)
		assert.NoError(t, err)
		assert.Equal(t, 1, newHabit.Version)
	})

	t.Run("Get By ID round-trips the schedule", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, habitID)
		require.NoError(t, err)
		assert.Equal(t, newHabit.ID, fetched.ID)
		assert.Equal(t, 1, fetched.Version, "version starts at 1")
		assert.Nil(t, fetched.DeletedAt)

		assert.Equal(t, schedule.Weekly, fetched.ScheduleType)
		assert.Equal(t, []int{1, 3, 5}, fetched.ScheduleDays)
		require.NotNil(t, fetched.StartDate)
		assert.Equal(t, start, *fetched.StartDate)
		assert.Nil(t, fetched.EndDate)
		assert.Equal(t, streaks.ScheduledDays, fetched.StreakPolicy)
		assert.Equal(t, "08:00", *fetched.ReminderTime)
	})

	t.Run("Update Habit", func(t *testing.T) {
		oldUpdatedAt := newHabit.UpdatedAt
		end := civil.Date{Year: 2024, Month: time.December, Day: 31}

		newHabit.Title = "Weekend only"
		newHabit.ScheduleDays = []int{0, 6}
		newHabit.EndDate = &end

		time.Sleep(100 * time.Millisecond)

		err := repo.Update(ctx, newHabit)
		require.NoError(t, err)

		updated, err := repo.GetByID(ctx, habitID)
		require.NoError(t, err)

		assert.Equal(t, "Weekend only", updated.Title)
		assert.Equal(t, []int{0, 6}, updated.ScheduleDays)
		require.NotNil(t, updated.EndDate)
		assert.Equal(t, end, *updated.EndDate)
		assert.True(t, updated.UpdatedAt.After(oldUpdatedAt), "updated_at did not advance: old=%v new=%v", oldUpdatedAt, updated.UpdatedAt)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, 2, newHabit.Version)
	})

	t.Run("UpdateStreaks keeps the version", func(t *testing.T) {
		require.NoError(t, repo.UpdateStreaks(ctx, habitID, 4, 9))

		fetched, err := repo.GetByID(ctx, habitID)
		require.NoError(t, err)
		assert.Equal(t, 4, fetched.CurrentStreak)
		assert.Equal(t, 9, fetched.LongestStreak)
		assert.Equal(t, 2, fetched.Version)

		assert.ErrorIs(t, repo.UpdateStreaks(ctx, uuid.NewString(), 1, 1), domain.ErrHabitNotFound)
	})

	t.Run("List By UserID", func(t *testing.T) {
		list, err := repo.ListByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, habitID, list[0].ID)
	})

	t.Run("Create with a live ID conflicts", func(t *testing.T) {
		dup := *newHabit
		err := repo.Create(ctx, &dup)
		assert.ErrorIs(t, err, domain.ErrHabitConflict)
	})

	t.Run("Delete Habit (Soft Delete Check)", func(t *testing.T) {
		err := repo.Delete(ctx, habitID)
		require.NoError(t, err)

		_, err = repo.GetByID(ctx, habitID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		var count int
		err = db.QueryRow("SELECT count(*) FROM habits WHERE id=$1 AND deleted_at IS NOT NULL", habitID).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "soft-deleted row must remain for sync")
	})

	t.Run("Create revives a soft-deleted habit", func(t *testing.T) {
		revived := &domain.Habit{
			ID: habitID, UserID: userID, Title: "Back again", Type: domain.HabitTypeBoolean,
			TargetValue: 1, ScheduleType: schedule.Daily, StreakPolicy: streaks.CalendarDays,
			CreatedAt: now, UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, revived))
		assert.Equal(t, 4, revived.Version, "create, update, delete, revive")

		fetched, err := repo.GetByID(ctx, habitID)
		require.NoError(t, err)
		assert.Equal(t, "Back again", fetched.Title)
		assert.Equal(t, schedule.Daily, fetched.ScheduleType)
		assert.Nil(t, fetched.ScheduleDays)
		assert.Zero(t, fetched.CurrentStreak)
	})

	t.Run("Create over another user's deleted habit conflicts", func(t *testing.T) {
		otherUser := "test-user-habits-2"
		insertUser(t, db, otherUser, "other-habit@kanso.app", now)

		victim := &domain.Habit{ID: uuid.NewString(), UserID: userID, Title: "Mine", Type: domain.HabitTypeBoolean, TargetValue: 1, ScheduleType: schedule.Daily, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.Create(ctx, victim))
		require.NoError(t, repo.Delete(ctx, victim.ID))

		thief := *victim
		thief.UserID = otherUser
		assert.ErrorIs(t, repo.Create(ctx, &thief), domain.ErrHabitConflict)
	})

	t.Run("Create for unknown user fails", func(t *testing.T) {
		orphan := &domain.Habit{ID: uuid.NewString(), UserID: "ghost-user", Title: "Orphan", Type: domain.HabitTypeBoolean, TargetValue: 1, ScheduleType: schedule.Daily, CreatedAt: now, UpdatedAt: now}
		assert.ErrorIs(t, repo.Create(ctx, orphan), domain.ErrHabitInvalidUserID)
	})

	t.Run("Handle Null Fields", func(t *testing.T) {
		nullHabitID := uuid.New().String()
		nullHabit := &domain.Habit{
			ID: nullHabitID, UserID: userID, Title: "Null Tester", Type: domain.HabitTypeBoolean, TargetValue: 1, CreatedAt: now, UpdatedAt: now,
		}

		require.NoError(t, repo.Create(ctx, nullHabit))

		fetched, err := repo.GetByID(ctx, nullHabitID)
		require.NoError(t, err)
		assert.Nil(t, fetched.ReminderTime)
		assert.Nil(t, fetched.StartDate)
		assert.Nil(t, fetched.ScheduleDays)
		assert.Equal(t, schedule.Daily, fetched.Schedule().Type)
		assert.Equal(t, streaks.CalendarDays, fetched.Policy())
	})

	t.Run("Update/Delete Non-Existent ID", func(t *testing.T) {
		randomID := uuid.New().String()
		dummyHabit := &domain.Habit{ID: randomID, UserID: userID, Title: "Ghost", Version: 1}

		err := repo.Update(ctx, dummyHabit)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		err = repo.Delete(ctx, randomID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Optimistic Locking: Prevent Overwrite", func(t *testing.T) {
		conflictID := uuid.New().String()
		h := &domain.Habit{ID: conflictID, UserID: userID, Title: "Conflict Base", Type: domain.HabitTypeBoolean, TargetValue: 1, ScheduleType: schedule.Daily, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.Create(ctx, h))

		deviceACopy, err := repo.GetByID(ctx, conflictID)
		require.NoError(t, err)

		deviceBCopy, err := repo.GetByID(ctx, conflictID)
		require.NoError(t, err)

		deviceBCopy.Title = "B wins"
		require.NoError(t, repo.Update(ctx, deviceBCopy))

		deviceACopy.Title = "A loses"
		err = repo.Update(ctx, deviceACopy)

		assert.ErrorIs(t, err, domain.ErrHabitConflict)
	})

	t.Run("GetChanges (Delta Sync)", func(t *testing.T) {
		syncUser := "sync-user-final"
		insertUser(t, db, syncUser, "sync-habit@kanso.app", now)

		h1 := &domain.Habit{ID: uuid.New().String(), UserID: syncUser, Title: "H1", Type: domain.HabitTypeBoolean, TargetValue: 1, ScheduleType: schedule.Daily, CreatedAt: now, UpdatedAt: now}
		h2 := &domain.Habit{ID: uuid.New().String(), UserID: syncUser, Title: "H2", Type: domain.HabitTypeBoolean, TargetValue: 1, ScheduleType: schedule.Daily, CreatedAt: now, UpdatedAt: now}

		require.NoError(t, repo.Create(ctx, h1))
		require.NoError(t, repo.Create(ctx, h2))

		time.Sleep(50 * time.Millisecond)

		var lastSync time.Time
		require.NoError(t, db.QueryRow("SELECT NOW()").Scan(&lastSync))

		time.Sleep(50 * time.Millisecond)

		h1.Title = "H1 Changed"
		require.NoError(t, repo.Update(ctx, h1))
		require.NoError(t, repo.Delete(ctx, h2.ID))

		changes, err := repo.GetChanges(ctx, syncUser, lastSync)
		require.NoError(t, err)
		require.Len(t, changes, 2)

		deleted := 0
		for _, c := range changes {
			if c.DeletedAt != nil {
				deleted++
			}
		}
		assert.Equal(t, 1, deleted, "tombstones are part of the delta")
	})
}
