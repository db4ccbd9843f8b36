package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/workers"
)

const userHeader = "X-Test-User"

// testEnv wires the handlers over in-memory storage. The user is taken from
// a test header instead of a bearer token.
type testEnv struct {
	router  *gin.Engine
	habits  *repository.InMemoryHabitRepository
	entries *repository.InMemoryEntryRepository
	loc     *time.Location
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		habits:  repository.NewInMemoryHabitRepository(),
		entries: repository.NewInMemoryEntryRepository(),
		loc:     time.UTC,
	}

	worker := workers.NewStreakWorker(env.habits, env.entries)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader(userHeader); userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
		}
		c.Next()
	})

	api := r.Group("/api/v1")
	adapterHTTP.NewHabitHandler(services.NewHabitService(env.habits)).RegisterRoutes(api)
	adapterHTTP.NewHistoryHandler(services.NewHistoryService(env.habits, env.entries, env.loc)).RegisterRoutes(api)
	adapterHTTP.NewEntryHandler(services.NewEntryService(env.entries, env.habits, worker)).RegisterRoutes(api)
	adapterHTTP.NewStatsHandler(services.NewStatsService(env.habits, env.entries), env.loc).RegisterRoutes(api)

	env.router = r
	return env
}

func (e *testEnv) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewBuffer(raw)
		}
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedHabit(t *testing.T, userID, title string, sched schedule.Descriptor) *domain.Habit {
	t.Helper()
	h, err := domain.NewHabit(title, userID)
	require.NoError(t, err)
	require.NoError(t, h.Update(domain.HabitChanges{
		Title:    title,
		Type:     domain.HabitTypeBoolean,
		Schedule: sched,
	}))
	require.NoError(t, e.habits.Create(context.Background(), h))
	return h
}

func (e *testEnv) seedEntry(t *testing.T, habit *domain.Habit, day civil.Date, value int) *domain.HabitEntry {
	t.Helper()
	entry := domain.NewHabitEntry(habit.ID, habit.UserID, day.In(e.loc).Add(9*time.Hour), value)
	entry.ID = habit.ID + "-" + day.String()
	require.NoError(t, e.entries.Create(context.Background(), entry))
	return entry
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}
