// Package app wires the cache service together: one Cache facade, one
// Monitor, one invalidation Router and one Memoizer shared by every caller,
// plus the catalog Service and the background task Supervisor.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/12dTa05/CoLy2/internal/config"
	"github.com/12dTa05/CoLy2/pkg/cache"
	"github.com/12dTa05/CoLy2/pkg/catalog"
	"github.com/12dTa05/CoLy2/pkg/catalog/postgres"
	"github.com/12dTa05/CoLy2/pkg/invalidation"
	"github.com/12dTa05/CoLy2/pkg/logging"
	"github.com/12dTa05/CoLy2/pkg/memo"
	"github.com/12dTa05/CoLy2/pkg/monitor"
	"github.com/12dTa05/CoLy2/pkg/tasks"
	"github.com/12dTa05/CoLy2/pkg/warm"
)

const readyTimeout = time.Second

// Task names registered on the supervisor.
const (
	TaskSweep = "cache_sweep"
	TaskWarm  = "cache_warm"
)

// App holds the process-wide components.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Cache   *cache.Cache
	Monitor *monitor.Monitor
	Router  *invalidation.Router
	Memo    *memo.Memoizer

	// Catalog is nil when no database is configured
	Catalog *catalog.Service

	Supervisor *tasks.Supervisor

	warmer   *warm.Warmer
	taskLog  zerolog.Logger
	redis    *cache.RedisStore
	postgres *postgres.Source
}

// New connects the stores and builds the component graph. A primary cache
// that cannot be reached leaves the App in degraded mode; a database that
// cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	var (
		source catalog.Source
		pg     *postgres.Source
	)
	if cfg.Database.URL != "" {
		var err error
		pg, err = postgres.New(ctx, postgres.Config{
			DSN:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		}, logger.With().Str("component", logging.ComponentPostgres).Logger())
		if err != nil {
			return nil, fmt.Errorf("connect catalog database: %w", err)
		}
		source = pg
	}

	a := NewWithSource(ctx, cfg, source, logger)
	a.postgres = pg
	return a, nil
}

// NewWithSource builds the App around an existing catalog source, which may
// be nil.
func NewWithSource(ctx context.Context, cfg *config.Config, source catalog.Source, logger zerolog.Logger) *App {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Monitor: monitor.New(),
	}

	a.Cache, a.redis = cache.Open(ctx,
		cfg.RedisConfig(),
		cfg.FallbackConfig(),
		cache.Config{DefaultTTL: cfg.Cache.DefaultTTL},
		component(logger, logging.ComponentCache),
	)
	a.Router = invalidation.NewRouter(a.Cache, component(logger, logging.ComponentInvalidation))
	a.Memo = memo.New(a.Cache, a.Monitor, component(logger, logging.ComponentMemo))

	if source != nil {
		a.Catalog = catalog.NewService(source, a.Memo, a.Router, a.Monitor, component(logger, logging.ComponentCatalog))
	}

	backoff := tasks.DefaultBackoffConfig()
	backoff.Initial = cfg.Tasks.ErrorBackoff
	a.taskLog = component(logger, logging.ComponentTasks)
	a.Supervisor = tasks.NewSupervisor(backoff, a.taskLog)
	a.Supervisor.Add(tasks.Task{
		Name:     TaskSweep,
		Interval: cfg.Cache.SweepInterval,
		Run:      a.sweep,
	})
	if a.Catalog != nil {
		a.warmer = warm.New(warm.DefaultConfig(), component(logger, logging.ComponentWarm))
		a.Supervisor.Add(tasks.Task{
			Name:       TaskWarm,
			Interval:   cfg.Cache.WarmInterval,
			RunAtStart: true,
			Run:        a.Warm,
		})
	}

	return a
}

func (a *App) sweep(context.Context) error {
	start := time.Now()
	removed := a.Cache.Sweep()
	a.taskLog.Info().
		Str("task", TaskSweep).
		Int("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("Fallback sweep complete")
	return nil
}

// Warm runs the catalog warm set once. It is a no-op without a catalog.
func (a *App) Warm(ctx context.Context) error {
	if a.Catalog == nil {
		return nil
	}
	return a.warmer.Warm(ctx, a.Catalog.WarmJobs()...)
}

// Run starts the background tasks and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Supervisor.Run(ctx)
}

// Ready reports the tier serving reads: "primary" when the primary store
// answers a ping within readyTimeout, "fallback" otherwise.
func (a *App) Ready(ctx context.Context) string {
	if a.Cache.Degraded() || a.redis == nil {
		return "fallback"
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := a.redis.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Str("component", logging.ComponentCache).Msg("Primary cache ping failed")
		return "fallback"
	}
	return "primary"
}

// Close releases the primary store and database connections.
func (a *App) Close() error {
	var err error
	if a.redis != nil {
		err = a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	return err
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
