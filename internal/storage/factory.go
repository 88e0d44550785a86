package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tracyhatemice/mailarchive/internal/config"
)

// New constructs the backend selected by cfg.Provider. A construction
// failure (bad credentials, unreachable store) is fatal to the selection
// and propagates to the caller.
func New(ctx context.Context, cfg config.Storage, logger *slog.Logger) (Backend, error) {
	switch cfg.Provider {
	case "s3":
		logger.Info("using s3 storage", "bucket", cfg.S3.Bucket)
		return NewS3(ctx, cfg.S3, logger)
	case "gcs":
		logger.Info("using gcs storage", "bucket", cfg.GCS.Bucket)
		return NewGCS(ctx, cfg.GCS, logger)
	case "azure":
		logger.Info("using azure storage", "container", cfg.Azure.Container)
		return NewAzure(ctx, cfg.Azure, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}
