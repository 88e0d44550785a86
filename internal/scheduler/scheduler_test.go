package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracyhatemice/mailarchive/internal/pipeline"
)

type countingJob struct {
	runs   atomic.Int32
	err    error
	cancel context.CancelFunc
	after  int32
}

func (j *countingJob) Run(ctx context.Context) (pipeline.Summary, error) {
	n := j.runs.Add(1)
	if j.cancel != nil && n >= j.after {
		j.cancel()
	}
	return pipeline.Summary{}, j.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunExecutesImmediatelyAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &countingJob{cancel: cancel, after: 1}

	done := make(chan struct{})
	go func() {
		New(job, time.Hour, testLogger()).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	require.Equal(t, int32(1), job.runs.Load())
}

func TestRunKeepsGoingAfterJobError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &countingJob{err: errors.New("listing failed"), cancel: cancel, after: 3}

	done := make(chan struct{})
	go func() {
		New(job, 5*time.Millisecond, testLogger()).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	require.GreaterOrEqual(t, job.runs.Load(), int32(3))
}
