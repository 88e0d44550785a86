package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/tracyhatemice/mailarchive/internal/config"
)

// AzureBackend uploads messages to an Azure Blob Storage container.
type AzureBackend struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// NewAzure creates an Azure backend from a connection string, creating
// the target container if it does not exist yet.
func NewAzure(ctx context.Context, cfg config.Azure, logger *slog.Logger) (*AzureBackend, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, cfg.Container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("create azure container %s: %w", cfg.Container, err)
		}
	} else {
		logger.Info("created azure container", "container", cfg.Container)
	}

	return &AzureBackend{
		client:    client,
		container: cfg.Container,
		logger:    logger,
	}, nil
}

func (b *AzureBackend) UploadEmail(ctx context.Context, data []byte, name string) (string, error) {
	_, err := b.client.UploadBuffer(ctx, b.container, name, data, nil)
	if err != nil {
		return "", WrapTransient(fmt.Errorf("azure upload %s: %w", name, err))
	}

	storageKey := fmt.Sprintf("azure://%s/%s", b.container, name)
	b.logger.Info("uploaded email", "storage_key", storageKey)
	return storageKey, nil
}
