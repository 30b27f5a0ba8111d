// Package tasks runs periodic background tasks with per-task failure
// isolation.
//
// Each task runs in its own goroutine. A failing or panicking iteration is
// logged and followed by an exponential backoff pause (with ±20% jitter)
// instead of the regular interval; one task failing never stops another.
// All tasks stop when the context passed to Run is cancelled.
package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// TaskRuns tracks task iterations by outcome
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coly_task_runs_total",
		Help: "Total number of background task iterations by result",
	}, []string{"task", "result"}) // result: "success", "error", "panic"

	// TaskBackoffSeconds tracks pauses taken after failed iterations
	TaskBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coly_task_backoff_seconds",
		Help:    "Backoff duration after failed task iterations",
		Buckets: []float64{1, 10, 60, 300, 600, 1800},
	}, []string{"task"})
)

// Task is a unit of periodic work.
type Task struct {
	// Name labels the task in logs and metrics
	Name string

	// Interval is the pause between successful iterations
	Interval time.Duration

	// RunAtStart runs the first iteration immediately instead of after one
	// interval
	RunAtStart bool

	// Run performs one iteration
	Run func(ctx context.Context) error
}

// BackoffConfig holds the pause policy after failed iterations.
type BackoffConfig struct {
	// Initial is the pause after the first consecutive failure
	Initial time.Duration

	// Max caps the pause
	Max time.Duration

	// Multiplier grows the pause per consecutive failure
	Multiplier float64
}

// DefaultBackoffConfig returns the reference backoff: 5 minutes after a
// failure, doubling up to 30 minutes.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    5 * time.Minute,
		Max:        30 * time.Minute,
		Multiplier: 2.0,
	}
}

// delay returns the un-jittered pause after the given number of consecutive
// failures (>= 1).
func (c BackoffConfig) delay(failures int) time.Duration {
	d := c.Initial
	for i := 1; i < failures; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.Max {
			return c.Max
		}
	}
	if d > c.Max {
		return c.Max
	}
	return d
}

// Supervisor owns a set of periodic tasks.
type Supervisor struct {
	tasks   []Task
	backoff BackoffConfig
	logger  zerolog.Logger
}

// NewSupervisor creates a supervisor with no tasks.
func NewSupervisor(backoff BackoffConfig, logger zerolog.Logger) *Supervisor {
	if backoff.Initial <= 0 {
		backoff = DefaultBackoffConfig()
	}
	if backoff.Max < backoff.Initial {
		backoff.Max = backoff.Initial
	}
	if backoff.Multiplier < 1 {
		backoff.Multiplier = 1
	}
	return &Supervisor{backoff: backoff, logger: logger}
}

// Add registers a task. Tasks added after Run has started are ignored.
func (s *Supervisor) Add(t Task) {
	if t.Run == nil {
		panic(fmt.Sprintf("task %q has no Run function", t.Name))
	}
	if t.Interval <= 0 {
		panic(fmt.Sprintf("task %q has a non-positive interval", t.Name))
	}
	s.tasks = append(s.tasks, t)
}

// Tasks returns the names of registered tasks.
func (s *Supervisor) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name
	}
	return names
}

// Run starts every task and blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, t := range s.tasks {
		t := t
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}

	s.logger.Info().Strs("tasks", s.Tasks()).Msg("Background tasks started")
	err := g.Wait()
	s.logger.Info().Msg("Background tasks stopped")
	return err
}

func (s *Supervisor) loop(ctx context.Context, t Task) {
	wait := t.Interval
	if t.RunAtStart {
		wait = 0
	}

	failures := 0
	for {
		if !sleep(ctx, wait) {
			return
		}

		if err := s.runOnce(ctx, t); err != nil {
			if ctx.Err() != nil {
				return
			}

			failures++
			wait = jitter(s.backoff.delay(failures))
			TaskBackoffSeconds.WithLabelValues(t.Name).Observe(wait.Seconds())

			s.logger.Warn().
				Err(err).
				Str("task", t.Name).
				Int("attempt", failures).
				Dur("backoff", wait).
				Msg("Background task failed, backing off")
			continue
		}

		if failures > 0 {
			s.logger.Info().Str("task", t.Name).Int("attempt", failures+1).Msg("Background task recovered")
		}
		failures = 0
		wait = t.Interval
	}
}

// runOnce runs one iteration, converting a panic into an error.
func (s *Supervisor) runOnce(ctx context.Context, t Task) (err error) {
	runID := uuid.New()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			TaskRuns.WithLabelValues(t.Name, "panic").Inc()
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()

	if err := t.Run(ctx); err != nil {
		TaskRuns.WithLabelValues(t.Name, "error").Inc()
		return err
	}

	TaskRuns.WithLabelValues(t.Name, "success").Inc()
	s.logger.Debug().
		Str("task", t.Name).
		Str("run_id", runID.String()).
		Dur("duration", time.Since(start)).
		Msg("Background task completed")
	return nil
}

// jitter applies ±20% randomness.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// sleep waits for d or until ctx is done, reporting whether the wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
