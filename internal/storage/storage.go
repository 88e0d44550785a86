// Package storage provides the object-storage backends that archived
// messages are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Backend stores raw message bytes under a target name and returns the
// storage key the bytes are durably addressable by (for example
// "s3://bucket/name").
type Backend interface {
	UploadEmail(ctx context.Context, data []byte, name string) (string, error)
}

// ErrTransient marks upload failures that are worth retrying: network
// errors, timeouts, throttling and server-side errors. Validation and
// configuration errors are never marked transient.
var ErrTransient = errors.New("transient storage error")

// WrapTransient annotates an error so callers can detect transient
// failures with IsTransient.
func WrapTransient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
