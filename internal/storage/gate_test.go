package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracyhatemice/mailarchive/internal/retry"
)

type scriptedBackend struct {
	calls int
	// errs[i] is returned on call i; past the end, uploads succeed.
	errs []error
}

func (b *scriptedBackend) UploadEmail(ctx context.Context, data []byte, name string) (string, error) {
	i := b.calls
	b.calls++
	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	return "s3://bucket/" + name, nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, Base: time.Millisecond, Cap: 4 * time.Millisecond}
}

func TestGatePassesThroughSuccess(t *testing.T) {
	backend := &scriptedBackend{}
	gate := NewGate(backend, fastPolicy())

	key, err := gate.UploadEmail(context.Background(), []byte("raw"), "a.eml")
	require.NoError(t, err)
	require.Equal(t, "s3://bucket/a.eml", key)
	require.Equal(t, 1, backend.calls)
}

func TestGateRetriesTransientErrors(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		WrapTransient(errors.New("timeout")),
		WrapTransient(errors.New("throttled")),
	}}
	gate := NewGate(backend, fastPolicy())

	key, err := gate.UploadEmail(context.Background(), []byte("raw"), "a.eml")
	require.NoError(t, err)
	require.Equal(t, "s3://bucket/a.eml", key)
	require.Equal(t, 3, backend.calls)
}

func TestGateExhaustsAttempts(t *testing.T) {
	last := WrapTransient(errors.New("still down"))
	backend := &scriptedBackend{errs: []error{
		WrapTransient(errors.New("down")),
		WrapTransient(errors.New("down")),
		last,
	}}
	gate := NewGate(backend, fastPolicy())

	_, err := gate.UploadEmail(context.Background(), []byte("raw"), "a.eml")
	require.Equal(t, last, err)
	require.Equal(t, 3, backend.calls)
}

func TestGateDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("access denied")
	backend := &scriptedBackend{errs: []error{permanent}}
	gate := NewGate(backend, fastPolicy())

	_, err := gate.UploadEmail(context.Background(), []byte("raw"), "a.eml")
	require.Equal(t, permanent, err)
	require.Equal(t, 1, backend.calls)
}

func TestIsTransient(t *testing.T) {
	require.True(t, IsTransient(WrapTransient(errors.New("x"))))
	require.True(t, IsTransient(WrapTransient(nil)))
	require.False(t, IsTransient(errors.New("x")))
	require.False(t, IsTransient(nil))
}
