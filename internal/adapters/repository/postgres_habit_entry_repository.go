package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
)

const entryColumns = `id, habit_id, user_id, completion_date, value, notes, version, created_at, updated_at, deleted_at`

const entryQueryTimeout = 5 * time.Second

type PostgresEntryRepository struct {
	db *sqlx.DB
}

func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

// selectEntries runs SELECT entryColumns FROM habit_entries with the given
// tail (WHERE and ORDER BY). It never returns a nil slice.
func (r *PostgresEntryRepository) selectEntries(ctx context.Context, tail string, args ...any) ([]*domain.HabitEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, entryQueryTimeout)
	defer cancel()

	entries := []*domain.HabitEntry{}
	if err := r.db.SelectContext(ctx, &entries, `SELECT `+entryColumns+` FROM habit_entries `+tail, args...); err != nil {
		return nil, fmt.Errorf("repository: select entries failed: %w", err)
	}
	return entries, nil
}

func (r *PostgresEntryRepository) Create(ctx context.Context, entry *domain.HabitEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, entryQueryTimeout)
	defer cancel()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO habit_entries (`+entryColumns+`)
		VALUES (:id, :habit_id, :user_id, :completion_date, :value, :notes,
		        :version, :created_at, :updated_at, :deleted_at)`, entry)
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced habit or user does not exist", domain.ErrHabitNotFound)
	case isUniqueViolation(err):
		return domain.ErrEntryConflict
	}
	return fmt.Errorf("repository: insert entry failed: %w", err)
}

func (r *PostgresEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, entryQueryTimeout)
	defer cancel()

	var entry domain.HabitEntry
	err := r.db.GetContext(ctx, &entry, `SELECT `+entryColumns+` FROM habit_entries WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get entry failed: %w", err)
	}
	return &entry, nil
}

// ListByHabitID returns entries with from <= completion_date <= to, newest first.
func (r *PostgresEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		WHERE habit_id = $1 AND deleted_at IS NULL
		  AND completion_date BETWEEN $2 AND $3
		ORDER BY completion_date DESC`, habitID, from, to)
}

func (r *PostgresEntryRepository) ListAllByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		WHERE habit_id = $1 AND deleted_at IS NULL
		ORDER BY completion_date`, habitID)
}

func (r *PostgresEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND completion_date >= $2 AND completion_date < $3
		ORDER BY completion_date`, userID, from, to)
}

func (r *PostgresEntryRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at`, userID, since)
}

// Update stores an entry whose Version the caller already bumped. The row is
// locked while its stored version is compared with Version-1.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry *domain.HabitEntry) error {
	ctx, cancel := context.WithTimeout(ctx, entryQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin entry update: %w", err)
	}
	defer tx.Rollback()

	var stored int
	err = tx.GetContext(ctx, &stored, `
		SELECT version FROM habit_entries
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, entry.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrEntryNotFound
	case err != nil:
		return fmt.Errorf("repository: lock entry failed: %w", err)
	case stored != entry.Version-1:
		return domain.ErrEntryConflict
	}

	if _, err := tx.NamedExecContext(ctx, `
		UPDATE habit_entries
		SET value = :value, notes = :notes, completion_date = :completion_date,
		    version = :version, updated_at = :updated_at
		WHERE id = :id`, entry); err != nil {
		return fmt.Errorf("repository: update entry failed: %w", err)
	}
	return tx.Commit()
}

// Delete tombstones the entry and bumps its version so sync clients see it.
func (r *PostgresEntryRepository) Delete(ctx context.Context, id string, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, entryQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE habit_entries
		SET deleted_at = $1, updated_at = $1, version = version + 1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL`,
		time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("repository: delete entry failed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("repository: delete entry failed: %w", err)
	} else if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}
