package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

const habitColumns = `
    id, user_id, title, description, color, icon, sort_order,
    type, reminder_time, target_value, unit,
    schedule_type, schedule_days, start_date, end_date, streak_policy,
    current_streak, longest_streak, archived_at,
    version, deleted_at, created_at, updated_at`

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var scheduleType, policy string
	var daysJSON []byte
	var start, end sql.NullTime

	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Color, &h.Icon, &h.SortOrder,
		&h.Type, &h.ReminderTime, &h.TargetValue, &h.Unit,
		&scheduleType, &daysJSON, &start, &end, &policy,
		&h.CurrentStreak, &h.LongestStreak, &h.ArchivedAt,
		&h.Version, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(daysJSON) > 0 {
		if err := json.Unmarshal(daysJSON, &h.ScheduleDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule days: %w", err)
		}
	}
	if len(h.ScheduleDays) == 0 {
		h.ScheduleDays = nil
	}

	h.ScheduleType = schedule.Type(scheduleType)
	h.StreakPolicy = streaks.Policy(policy)
	h.StartDate = scanDate(start)
	h.EndDate = scanDate(end)

	return &h, nil
}

func (r *PostgresHabitRepository) scanRows(rows *sql.Rows) ([]*domain.Habit, error) {
	defer rows.Close()

	habits := []*domain.Habit{}
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return habits, nil
}

// marshalDays encodes the weekday list as text so both drivers accept it
// for the jsonb column.
func marshalDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schedule days: %w", err)
	}
	return string(b), nil
}

// Create inserts the habit. When a soft-deleted row of the same user already
// holds the ID it is overwritten and brought back; a live row, or a row of
// another user, yields ErrHabitConflict.
func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	daysJSON, err := marshalDays(h.ScheduleDays)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO habits (` + habitColumns + `
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7,
            $8, $9, $10, $11,
            $12, $13, $14, $15, $16,
            $17, $18, $19,
            1, NULL, $20, $21
        )
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title, description = EXCLUDED.description,
            color = EXCLUDED.color, icon = EXCLUDED.icon, sort_order = EXCLUDED.sort_order,
            type = EXCLUDED.type, reminder_time = EXCLUDED.reminder_time,
            target_value = EXCLUDED.target_value, unit = EXCLUDED.unit,
            schedule_type = EXCLUDED.schedule_type, schedule_days = EXCLUDED.schedule_days,
            start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
            streak_policy = EXCLUDED.streak_policy,
            current_streak = 0, longest_streak = 0, archived_at = EXCLUDED.archived_at,
            version = habits.version + 1, deleted_at = NULL,
            updated_at = EXCLUDED.updated_at
        WHERE habits.deleted_at IS NOT NULL AND habits.user_id = EXCLUDED.user_id
        RETURNING version`

	var version int
	err = r.db.QueryRowContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.Type, h.ReminderTime, h.TargetValue, h.Unit,
		string(h.ScheduleType), daysJSON, dateParam(h.StartDate), dateParam(h.EndDate), string(h.StreakPolicy),
		h.CurrentStreak, h.LongestStreak, h.ArchivedAt,
		h.CreatedAt, h.UpdatedAt,
	).Scan(&version)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrHabitConflict
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: owner does not exist", domain.ErrHabitInvalidUserID)
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = version
	h.DeletedAt = nil
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND deleted_at IS NULL`

	h, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return h, nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return r.scanRows(rows)
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	daysJSON, err := marshalDays(h.ScheduleDays)
	if err != nil {
		return err
	}

	query := `
        UPDATE habits SET
            title=$1, description=$2, color=$3, icon=$4, sort_order=$5,
            type=$6, reminder_time=$7, target_value=$8, unit=$9,
            schedule_type=$10, schedule_days=$11, start_date=$12, end_date=$13,
            streak_policy=$14, archived_at=$15,
            updated_at=NOW(), version = version + 1
        WHERE id=$16 AND version=$17 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.Type, h.ReminderTime, h.TargetValue, h.Unit,
		string(h.ScheduleType), daysJSON, dateParam(h.StartDate), dateParam(h.EndDate),
		string(h.StreakPolicy), h.ArchivedAt,
		h.ID, h.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.missOrConflict(ctx, h.ID)
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	h.Version = newVersion
	h.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresHabitRepository) missOrConflict(ctx context.Context, id string) error {
	var count int
	existsQuery := `SELECT count(*) FROM habits WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&count); err != nil {
		return fmt.Errorf("existence check failed: %w", err)
	}
	if count == 0 {
		return domain.ErrHabitNotFound
	}
	return domain.ErrHabitConflict
}

// UpdateStreaks writes the cached counters. The version is left alone so a
// background recomputation never conflicts with a client edit.
func (r *PostgresHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	query := `
        UPDATE habits
        SET current_streak = $1, longest_streak = $2, updated_at = NOW()
        WHERE id = $3 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, current, longest, id)
	if err != nil {
		return fmt.Errorf("streak update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}

func (r *PostgresHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	return r.scanRows(rows)
}
