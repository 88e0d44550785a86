package storage

import (
	"context"

	"github.com/tracyhatemice/mailarchive/internal/retry"
)

// Gate wraps a Backend with bounded exponential-backoff retry. Only
// transient errors are retried; once the attempt budget is exhausted the
// last backend error is returned unchanged. Gate is the only place in the
// ingestion path with built-in retry.
type Gate struct {
	backend Backend
	policy  retry.Policy
}

// NewGate wraps backend with the given retry policy.
func NewGate(backend Backend, policy retry.Policy) *Gate {
	return &Gate{backend: backend, policy: policy}
}

func (g *Gate) UploadEmail(ctx context.Context, data []byte, name string) (string, error) {
	var key string
	err := retry.Do(ctx, g.policy, IsTransient, func() error {
		var err error
		key, err = g.backend.UploadEmail(ctx, data, name)
		return err
	})
	if err != nil {
		return "", err
	}
	return key, nil
}
