package workers

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/metrics"
)

const queueSize = 100

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type EntryRepository interface {
	ListAllByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error)
}

type StreakJob struct {
	HabitID string
}

type Option func(*StreakWorker)

func WithLogger(l *zap.Logger) Option {
	return func(w *StreakWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithLocation sets the zone in which entry timestamps become calendar days.
func WithLocation(loc *time.Location) Option {
	return func(w *StreakWorker) {
		if loc != nil {
			w.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *StreakWorker) {
		if now != nil {
			w.now = now
		}
	}
}

type StreakWorker struct {
	habitRepo HabitRepository
	entryRepo EntryRepository
	jobs      chan StreakJob
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewStreakWorker(hRepo HabitRepository, eRepo EntryRepository, opts ...Option) *StreakWorker {
	w := &StreakWorker{
		habitRepo: hRepo,
		entryRepo: eRepo,
		jobs:      make(chan StreakJob, queueSize),
		logger:    zap.NewNop(),
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Info("[WORKER] streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				w.logger.Info("[WORKER] streak worker shutting down")
				return
			}
		}
	}()
}

// Enqueue never blocks: when the queue is full the job is dropped and the
// next change to the habit schedules a fresh one.
func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		metrics.IncrementStreakJob("dropped")
		w.logger.Warn("[WORKER] queue full, dropping job", zap.String("habit_id", habitID))
	}
}

// Pending is the number of queued jobs not yet picked up.
func (w *StreakWorker) Pending() int {
	return len(w.jobs)
}

// Today is the worker's current calendar day.
func (w *StreakWorker) Today() civil.Date {
	return civil.DateOf(w.now().In(w.loc))
}

// Recompute evaluates the habit's streaks as of today and stores them when
// they differ from the cached counters.
func (w *StreakWorker) Recompute(ctx context.Context, habitID string) (streaks.Result, bool, error) {
	habit, err := w.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return streaks.Result{}, false, err
	}

	entries, err := w.entryRepo.ListAllByHabitID(ctx, habitID)
	if err != nil {
		return streaks.Result{}, false, err
	}

	res, err := streaks.Compute(habit.Records(entries, w.loc), habit.Schedule(), w.Today(), habit.Policy())
	metrics.IncrementEngineEvaluation("worker_streaks", err)
	if err != nil {
		return streaks.Result{}, false, err
	}

	if habit.CurrentStreak == res.Current && habit.LongestStreak == res.Longest {
		return res, false, nil
	}

	if err := w.habitRepo.UpdateStreaks(ctx, habitID, res.Current, res.Longest); err != nil {
		return res, false, err
	}
	return res, true, nil
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	log := w.logger.With(zap.String("habit_id", job.HabitID))

	res, changed, err := w.Recompute(ctx, job.HabitID)
	switch {
	case err != nil:
		metrics.IncrementStreakJob("failed")
		log.Error("[WORKER] streak recomputation failed", zap.Error(err))
	case changed:
		metrics.IncrementStreakJob("updated")
		log.Info("[WORKER] streak updated", zap.Int("current", res.Current), zap.Int("longest", res.Longest))
	default:
		metrics.IncrementStreakJob("unchanged")
	}
}
