// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"sync"
	"time"

	appctx "facturard/internal/core/context"
	"facturard/pkg/logger"
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// RunAtStart runs the job once before the first tick.
	RunAtStart bool
	Run        func(ctx context.Context) error
}

// Runner schedules jobs, each in its own goroutine. A job never overlaps
// with itself; a slow run delays its next tick.
type Runner struct {
	jobs []Job
	log  *logger.Logger
}

// NewRunner creates a runner for jobs.
func NewRunner(log *logger.Logger, jobs ...Job) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{jobs: jobs, log: log.WithComponent("worker")}
}

// Run blocks until ctx is cancelled and every job has returned.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range r.jobs {
		if job.Interval <= 0 || job.Run == nil {
			r.log.Warnw("job disabled", "job", job.Name)
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			r.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	log := r.log.With("job", job.Name)
	log.Infow("job started", "interval", job.Interval.String())

	if job.RunAtStart {
		r.runOnce(ctx, log, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infow("job stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx, log, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, log *logger.Logger, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("job panicked", "panic", rec)
		}
	}()

	ctx = appctx.WithTrace(ctx, appctx.NewRunTrace(job.Name))
	log = log.WithContext(ctx)

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Errorw("job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	log.Debugw("job finished", "duration_ms", time.Since(start).Milliseconds())
}
