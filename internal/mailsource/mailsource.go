package mailsource

import (
	"context"
	"time"
)

// Ref identifies one message in the remote mailbox.
type Ref struct {
	ID   string    // unique identifier (Message-ID, or UID/sequence fallback)
	Date time.Time // date the message was sent, zero if unknown
}

// Source lists and downloads messages from a remote mail server.
//
// Listings are best-effort: consecutive calls may overlap and the order of
// the returned refs is unspecified. Callers must deduplicate themselves.
type Source interface {
	// ListRecent returns refs for messages received within the lookback
	// window, ending at now.
	ListRecent(ctx context.Context, lookback time.Duration) ([]Ref, error)

	// DownloadRaw returns the raw RFC 5322 bytes for a ref returned by the
	// most recent ListRecent call. A message that has disappeared from the
	// mailbox yields (nil, nil), not an error.
	DownloadRaw(ctx context.Context, id string) ([]byte, error)

	// Close releases any resources held by the source.
	Close() error
}
