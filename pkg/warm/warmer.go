// Package warm pre-computes known-hot queries so that a restart or a mass
// expiry does not send every first request to the database at once.
//
// Jobs run in parallel on a bounded worker pool, each under its own timeout.
// A failing job does not stop the others; all failures are joined into the
// returned error.
//
// Example usage:
//
//	w := warm.New(warm.DefaultConfig(), logger)
//	err := w.Warm(ctx, catalog.WarmJobs()...)
package warm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of jobs running at once
	MaxConcurrency int

	// Timeout per job
	Timeout time.Duration
}

// DefaultConfig returns the default warmer configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Job is one query to pre-compute
type Job struct {
	// Name labels the job in logs and errors
	Name string

	// Run computes the query through the cache so the result is stored
	Run func(ctx context.Context) error
}

// Result is the outcome of one job
type Result struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Warmer runs warm jobs on a worker pool
type Warmer struct {
	config Config
	logger zerolog.Logger
}

// New creates a warmer
func New(config Config, logger zerolog.Logger) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Warmer{
		config: config,
		logger: logger,
	}
}

// Warm runs every job and returns the joined errors of failed jobs.
func (w *Warmer) Warm(ctx context.Context, jobs ...Job) error {
	results := w.Run(ctx, jobs...)

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Run runs every job and returns the per-job results in job order.
func (w *Warmer) Run(ctx context.Context, jobs ...Job) []Result {
	start := time.Now()
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	workers := w.config.MaxConcurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.worker(ctx, jobs, queue, results, &wg, i)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	event := w.logger.Info()
	if failed > 0 {
		event = w.logger.Warn()
	}
	event.
		Int("jobs", len(jobs)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Cache warm complete")

	return results
}

// worker processes jobs from the queue. Each index is written by exactly one
// worker.
func (w *Warmer) worker(ctx context.Context, jobs []Job, queue <-chan int, results []Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for i := range queue {
		job := jobs[i]

		if err := ctx.Err(); err != nil {
			results[i] = Result{Name: job.Name, Err: err}
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		start := time.Now()
		err := job.Run(jobCtx)
		cancel()

		results[i] = Result{Name: job.Name, Duration: time.Since(start), Err: err}

		if err != nil {
			w.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("job", job.Name).
				Msg("Warm job failed")
			continue
		}

		w.logger.Debug().
			Int("worker_id", workerID).
			Str("job", job.Name).
			Dur("duration", results[i].Duration).
			Msg("Warm job completed")
	}
}
