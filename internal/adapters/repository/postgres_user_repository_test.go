package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
)

func newTestUser(t *testing.T, prefix string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(uuid.NewString(), fmt.Sprintf("%s_%s@example.com", prefix, uuid.NewString()))
	require.NoError(t, err)
	// Hashing at cost 12 is slow; the repository only stores the string.
	user.PasswordHash = "hash"
	return user
}

func TestPostgresUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepository(db)
	ctx := context.Background()

	stored := newTestUser(t, "lookup")
	require.NoError(t, repo.Create(ctx, stored))

	t.Run("Lookups", func(t *testing.T) {
		lookups := map[string]func() (*domain.User, error){
			"by id":    func() (*domain.User, error) { return repo.GetByID(ctx, stored.ID) },
			"by email": func() (*domain.User, error) { return repo.GetByEmail(ctx, stored.Email) },
		}
		for name, get := range lookups {
			got, err := get()
			require.NoError(t, err, name)
			assert.Equal(t, stored.ID, got.ID, name)
			assert.Equal(t, stored.Email, got.Email, name)
			assert.Equal(t, "hash", got.PasswordHash, name)
			assert.WithinDuration(t, stored.CreatedAt, got.CreatedAt, time.Millisecond, name)
		}
	})

	t.Run("Unknown users", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.GetByEmail(ctx, "nonexistent@ghost.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		dup := newTestUser(t, "dup")
		dup.Email = stored.Email

		assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrEmailAlreadyExists)
	})

	t.Run("Emails are matched exactly", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, strings.ToUpper(stored.Email))
		assert.ErrorIs(t, err, domain.ErrUserNotFound, "callers normalize before lookup")
	})

	t.Run("Delete cascades to habits", func(t *testing.T) {
		user := newTestUser(t, "delete")
		require.NoError(t, repo.Create(ctx, user))
		insertHabit(t, db, uuid.NewString(), user.ID, "Cascade", time.Now().UTC())

		require.NoError(t, repo.Delete(ctx, user.ID))

		var habits int
		require.NoError(t, db.Get(&habits, "SELECT count(*) FROM habits WHERE user_id = $1", user.ID))
		assert.Zero(t, habits)
		assert.ErrorIs(t, repo.Delete(ctx, user.ID), domain.ErrUserNotFound)
	})
}
