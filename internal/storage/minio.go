package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"docdex/pkg/logger"
)

// Archive keeps a copy of every raw upload in object storage, so the original
// bytes survive after the upload directory is cleaned.
type Archive struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewArchive ensures the bucket exists and returns the archive.
func NewArchive(ctx context.Context, client *minio.Client, bucket string, log *logger.Logger) (*Archive, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return &Archive{client: client, bucket: bucket, log: log}, nil
}

// Store uploads the file at path under the given object name.
func (a *Archive) Store(ctx context.Context, objectName, path, contentType string) error {
	info, err := a.client.FPutObject(ctx, a.bucket, objectName, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", objectName, err)
	}

	a.log.WithPayload(map[string]interface{}{
		"object": objectName,
		"size":   info.Size,
	}).Info("Archived raw upload")
	return nil
}
