package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/logger"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/metrics"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const habitListTTL = 30 * time.Minute

// CachedHabitRepository is a read-through cache of each user's habit list.
// Concurrent misses for one user share a single storage read, and every
// write drops the owner's list. Cache errors never fail a call.
type CachedHabitRepository struct {
	domain.HabitRepository

	lists *cache.JSON
	loads singleflight.Group
	log   *zap.Logger
}

func NewCachedHabitRepository(next domain.HabitRepository, lists *cache.JSON, log *zap.Logger) *CachedHabitRepository {
	return &CachedHabitRepository{HabitRepository: next, lists: lists, log: logger.OrNop(log)}
}

// NewHabitListCache is the cache layout CachedHabitRepository expects.
func NewHabitListCache(client redis.Cmdable) *cache.JSON {
	return cache.NewJSON(client, "habits", habitListTTL)
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	var habits []*domain.Habit
	err := r.lists.Get(ctx, userID, &habits)
	metrics.IncrementCacheLookup(err == nil)
	switch {
	case err == nil:
		return habits, nil
	case !errors.Is(err, cache.ErrMiss):
		r.log.Warn("[CACHE] Read failed, falling back to storage", zap.String("user_id", userID), zap.Error(err))
	}

	v, err, _ := r.loads.Do(userID, func() (any, error) {
		fresh, err := r.HabitRepository.ListByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := r.lists.Set(ctx, userID, fresh); err != nil {
			r.log.Warn("[CACHE] Write failed", zap.String("user_id", userID), zap.Error(err))
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Habit), nil
}

func (r *CachedHabitRepository) drop(ctx context.Context, userID string) {
	r.loads.Forget(userID)
	if err := r.lists.Delete(ctx, userID); err != nil {
		r.log.Warn("[CACHE] Failed to invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

// ownerOf resolves the user whose list a write by habit id will touch.
func (r *CachedHabitRepository) ownerOf(ctx context.Context, id string) string {
	h, err := r.HabitRepository.GetByID(ctx, id)
	if err != nil || h == nil {
		return ""
	}
	return h.UserID
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.HabitRepository.Create(ctx, habit); err != nil {
		return err
	}
	r.drop(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.HabitRepository.Update(ctx, habit); err != nil {
		return err
	}
	r.drop(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	owner := r.ownerOf(ctx, id)
	if err := r.HabitRepository.Delete(ctx, id); err != nil {
		return err
	}
	if owner != "" {
		r.drop(ctx, owner)
	}
	return nil
}

func (r *CachedHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	owner := r.ownerOf(ctx, id)
	if err := r.HabitRepository.UpdateStreaks(ctx, id, current, longest); err != nil {
		return err
	}
	if owner != "" {
		r.drop(ctx, owner)
	}
	return nil
}
