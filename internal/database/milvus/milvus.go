package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docdex/internal/config"
)

// Record column names shared by every docdex collection.
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldEmbedding  = "embedding"
	FieldDocType    = "doc_type"
	FieldSource     = "source"
	FieldChunkIndex = "chunk_index"
	FieldPageLabel  = "page_label"
)

// Client wraps the Milvus SDK client together with its configuration.
type Client struct {
	Client client.Client
	Config *config.MilvusConfig
}

// NewClient connects to Milvus using the given configuration.
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", cfg.Address, err)
	}
	return &Client{Client: c, Config: cfg}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck verifies connectivity by listing collections.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection creates the named collection with the docdex record
// schema and an IVF_FLAT/L2 index if it does not exist, then loads it.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	exists, err := c.Client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("document summaries and chunks keyed by embedding").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldDocType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(16)).
			WithField(entity.NewField().WithName(FieldSource).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512)).
			WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldPageLabel).WithDataType(entity.FieldTypeVarChar).WithMaxLength(32)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return nil
}
