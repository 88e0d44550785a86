package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tracyhatemice/mailarchive/internal/config"
)

// S3Backend uploads messages to an AWS S3 (or S3-compatible) bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3 creates an S3 backend. With empty access keys the SDK's default
// credential chain applies; a non-empty endpoint switches the client to
// path-style addressing for S3-compatible stores.
func NewS3(ctx context.Context, cfg config.S3, logger *slog.Logger) (*S3Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.GetRegion()),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func (b *S3Backend) UploadEmail(ctx context.Context, data []byte, name string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", WrapTransient(fmt.Errorf("s3 put object %s: %w", name, err))
	}

	storageKey := fmt.Sprintf("s3://%s/%s", b.bucket, name)
	b.logger.Info("uploaded email", "storage_key", storageKey)
	return storageKey, nil
}
