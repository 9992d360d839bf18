package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docdex/internal/config"
)

// NewClient connects to MinIO and verifies connectivity by listing buckets.
func NewClient(ctx context.Context, cfg *config.MinIOConfig) (*minio.Client, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if _, err := c.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("MinIO health check failed: %w", err)
	}
	return c, nil
}
