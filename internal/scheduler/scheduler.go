// Package scheduler triggers the ingestion pipeline on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tracyhatemice/mailarchive/internal/pipeline"
)

// Job is one schedulable unit of work.
type Job interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler invokes a job once immediately and then on every tick until
// the context is cancelled. Runs execute sequentially on the calling
// goroutine, so at most one run is active at a time; ticks that fire
// while a run is still in flight are dropped by the ticker.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Scheduler for job.
func New(job Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. A failed run is logged and the next
// tick retries from scratch; run errors never escape this loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler starting", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	sum, err := s.job.Run(ctx)
	if err != nil {
		s.logger.Error("run failed", "error", err)
		return
	}
	s.logger.Info("run finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"listed", sum.Listed,
		"archived", sum.Archived,
		"skipped", sum.Skipped,
		"deferred", sum.Deferred,
		"failed", sum.Failed,
	)
}
