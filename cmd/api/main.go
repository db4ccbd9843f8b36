// @title        Kanso Habit Engine API
// @version      1.0
// @description  Habit scheduling, streaks and calendar views with offline sync.
// @BasePath     /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/config"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/workers"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	router *gin.Engine
	db     *sqlx.DB
	redis  *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}

// newApp connects storage, starts the streak worker on ctx and builds the
// router. Redis is optional: without it habit lists are not cached and the
// rate limiter is off.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	startTime := time.Now()
	loc := cfg.TimeLocation()

	log.Info("Connecting to database...", zap.String("driver", cfg.DB.Driver), zap.String("host", cfg.DB.Host))
	db, err := repository.Connect(ctx, cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Database connected successfully.")

	a := &app{db: db}

	var habitRepo domain.HabitRepository = repository.NewPostgresHabitRepository(db)

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running without cache and rate limit", zap.Error(err))
	} else {
		a.redis = rdb
		habitRepo = repository.NewCachedHabitRepository(habitRepo, repository.NewHabitListCache(rdb), log)
	}

	entryRepo := repository.NewPostgresEntryRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)

	worker := workers.NewStreakWorker(habitRepo, entryRepo,
		workers.WithLogger(log),
		workers.WithLocation(loc),
	)
	worker.Start(ctx)

	tokenService := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Duration, userRepo)

	deps := adapterHTTP.RouterDependencies{
		AuthHandler:    adapterHTTP.NewAuthHandler(services.NewAuthService(userRepo, tokenService)),
		HabitHandler:   adapterHTTP.NewHabitHandler(services.NewHabitService(habitRepo)),
		EntryHandler:   adapterHTTP.NewEntryHandler(services.NewEntryService(entryRepo, habitRepo, worker)),
		StatsHandler:   adapterHTTP.NewStatsHandler(services.NewStatsService(habitRepo, entryRepo), loc),
		HistoryHandler: adapterHTTP.NewHistoryHandler(services.NewHistoryService(habitRepo, entryRepo, loc)),
		Tokens:         tokenService,
		DB:             db,
		Logger:         log,
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StartTime:      startTime,
	}
	if a.redis != nil {
		deps.Redis = a.redis
	}

	a.router = adapterHTTP.NewRouter(deps)
	return a, nil
}

func main() {
	configPath := flag.String("config", config.GetEnv("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Critical: invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		zap.NewExample().Fatal("Critical: failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if cfg.Log.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("Critical: failed to start", zap.Error(err))
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Kanso Habit Engine running", zap.String("addr", srv.Addr), zap.String("location", cfg.Server.Location))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Critical server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Stop signal received. Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server stopped gracefully.")
}
