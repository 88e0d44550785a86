package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Base: time.Millisecond, Cap: 4 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(error) bool { return true }, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(error) bool { return true }, func() error {
		calls++
		return errBoom
	})
	require.Equal(t, errBoom, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	notRetryable := func(error) bool { return false }
	err := Do(context.Background(), fastPolicy(3), notRetryable, func() error {
		calls++
		return errBoom
	})
	require.Equal(t, errBoom, err)
	require.Equal(t, 1, calls)
}

func TestDoReturnsLastErrorUnchanged(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(error) bool { return true }, func() error {
		calls++
		if calls == 1 {
			return first
		}
		return last
	})
	require.Equal(t, last, err)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Base: time.Minute}, func(error) bool { return true }, func() error {
		calls++
		cancel()
		return errBoom
	})
	require.Equal(t, errBoom, err)
	require.Equal(t, 1, calls)
}
