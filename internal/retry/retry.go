// Package retry provides a bounded exponential-backoff decorator for
// fallible operations.
package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how long Do keeps trying.
type Policy struct {
	Attempts int           // total attempts, including the first
	Base     time.Duration // wait before the first retry
	Cap      time.Duration // upper bound on the wait between attempts
}

// DefaultPolicy mirrors the upload retry budget: three attempts with
// exponential backoff starting at 2s, capped at 10s.
var DefaultPolicy = Policy{
	Attempts: 3,
	Base:     2 * time.Second,
	Cap:      10 * time.Second,
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or fn
// returns an error that retryable rejects. The last error is returned
// unchanged so callers see the root cause. Waits between attempts respect
// ctx cancellation; cancellation also returns the last error.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	delay := p.Base
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.Attempts || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if p.Cap > 0 && delay > p.Cap {
			delay = p.Cap
		}
	}
}
