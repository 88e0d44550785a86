// Package pipeline implements one ingestion run: list recent messages,
// skip what the ledger already knows, download, upload, commit.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tracyhatemice/mailarchive/internal/ledger"
	"github.com/tracyhatemice/mailarchive/internal/mailsource"
)

// Ledger is the slice of the ledger the pipeline needs.
type Ledger interface {
	IsProcessed(id string) (bool, error)
	MarkProcessed(id, storageKey string) error
	LogFailure(id, errorMessage string) error
}

// Backend uploads raw message bytes, returning the storage key. In
// production this is the retry gate wrapping a real backend.
type Backend interface {
	UploadEmail(ctx context.Context, data []byte, name string) (string, error)
}

var _ Ledger = (*ledger.Ledger)(nil)

// Outcome is the terminal result of processing one message in a run.
type Outcome int

const (
	// OutcomeArchived means the message was uploaded and committed.
	OutcomeArchived Outcome = iota
	// OutcomeSkipped means the ledger already had the message.
	OutcomeSkipped
	// OutcomeDeferred means the download came back empty; nothing was
	// recorded and the next run will see the message again.
	OutcomeDeferred
	// OutcomeFailed means a failure record was written (or updated).
	OutcomeFailed
)

// Result captures what happened to one message id.
type Result struct {
	ID         string
	Outcome    Outcome
	StorageKey string
	Err        error
}

// Summary tallies the outcomes of one run.
type Summary struct {
	Listed   int
	Archived int
	Skipped  int
	Deferred int
	Failed   int
}

// Pipeline drives the fetch-dedupe-upload-persist sequence. One message's
// failure never aborts the run; a listing failure aborts the whole run.
type Pipeline struct {
	source   mailsource.Source
	ledger   Ledger
	backend  Backend
	lookback time.Duration
	logger   *slog.Logger
}

// New creates a Pipeline. backend is expected to carry its own retry
// policy; the pipeline itself attempts every step once per run.
func New(source mailsource.Source, ldg Ledger, backend Backend, lookback time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:   source,
		ledger:   ldg,
		backend:  backend,
		lookback: lookback,
		logger:   logger,
	}
}

// Run performs one ingestion pass. It returns an error only when the
// listing itself fails; per-message failures are recorded in the ledger
// and reflected in the summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	refs, err := p.source.ListRecent(ctx, p.lookback)
	if err != nil {
		return Summary{}, fmt.Errorf("list recent messages: %w", err)
	}

	sum := Summary{Listed: len(refs)}
	for _, ref := range refs {
		res := p.processOne(ctx, ref.ID)
		switch res.Outcome {
		case OutcomeArchived:
			sum.Archived++
			p.logger.Info("archived", "msg_id", res.ID, "storage_key", res.StorageKey)
		case OutcomeSkipped:
			sum.Skipped++
			p.logger.Debug("already processed", "msg_id", res.ID)
		case OutcomeDeferred:
			sum.Deferred++
			p.logger.Warn("empty content, deferring to next run", "msg_id", res.ID)
		case OutcomeFailed:
			sum.Failed++
			p.logger.Error("processing failed", "msg_id", res.ID, "error", res.Err)
		}
	}
	return sum, nil
}

// processOne takes a single message id to its terminal outcome. Outcomes
// are independent across ids and do not depend on listing order.
func (p *Pipeline) processOne(ctx context.Context, id string) Result {
	done, err := p.ledger.IsProcessed(id)
	if err != nil {
		return p.fail(id, fmt.Errorf("idempotency check: %w", err))
	}
	if done {
		return Result{ID: id, Outcome: OutcomeSkipped}
	}

	raw, err := p.source.DownloadRaw(ctx, id)
	if err != nil {
		return p.fail(id, fmt.Errorf("download: %w", err))
	}
	if len(raw) == 0 {
		// Neither success nor failure: transient provider hiccups
		// self-resolve and must not accumulate failure records.
		return Result{ID: id, Outcome: OutcomeDeferred}
	}

	key, err := p.backend.UploadEmail(ctx, raw, objectName(id))
	if err != nil {
		return p.fail(id, fmt.Errorf("upload: %w", err))
	}

	if err := p.ledger.MarkProcessed(id, key); err != nil {
		return p.fail(id, fmt.Errorf("commit: %w", err))
	}

	return Result{ID: id, Outcome: OutcomeArchived, StorageKey: key}
}

func (p *Pipeline) fail(id string, err error) Result {
	if logErr := p.ledger.LogFailure(id, err.Error()); logErr != nil {
		p.logger.Error("failed to record failure", "msg_id", id, "error", logErr)
	}
	return Result{ID: id, Outcome: OutcomeFailed, Err: err}
}

// objectName derives the deterministic storage name for a message id.
// Message-IDs carry angle brackets and other characters that object
// stores handle badly, so everything outside a safe set is flattened.
func objectName(id string) string {
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")

	out := make([]byte, 0, len(id))
	for _, b := range []byte(id) {
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') ||
			b == '-' || b == '_' || b == '.' || b == '@' {
			out = append(out, b)
		} else {
			out = append(out, '_')
		}
	}
	return string(out) + ".eml"
}
