package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gcs "cloud.google.com/go/storage"

	"github.com/tracyhatemice/mailarchive/internal/config"
)

// GCSBackend uploads messages to a Google Cloud Storage bucket.
type GCSBackend struct {
	bucket *gcs.BucketHandle
	name   string
	logger *slog.Logger
}

// NewGCS creates a GCS backend. Credentials come from the ambient
// environment (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
// A missing bucket is created lazily when a project id is configured.
func NewGCS(ctx context.Context, cfg config.GCS, logger *slog.Logger) (*GCSBackend, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		if !errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, fmt.Errorf("check gcs bucket %s: %w", cfg.Bucket, err)
		}
		if err := bucket.Create(ctx, cfg.ProjectID, nil); err != nil {
			return nil, fmt.Errorf("create gcs bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created gcs bucket", "bucket", cfg.Bucket)
	}

	return &GCSBackend{
		bucket: bucket,
		name:   cfg.Bucket,
		logger: logger,
	}, nil
}

func (b *GCSBackend) UploadEmail(ctx context.Context, data []byte, name string) (string, error) {
	w := b.bucket.Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", WrapTransient(fmt.Errorf("gcs write %s: %w", name, err))
	}
	if err := w.Close(); err != nil {
		return "", WrapTransient(fmt.Errorf("gcs upload %s: %w", name, err))
	}

	storageKey := fmt.Sprintf("gs://%s/%s", b.name, name)
	b.logger.Info("uploaded email", "storage_key", storageKey)
	return storageKey, nil
}
