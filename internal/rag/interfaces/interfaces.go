package interfaces

import (
	"context"

	"docdex/internal/rag/schema"
)

// Loader is the interface for loading a source file and converting it into a
// list of Document objects (one per page or section when the format has
// internal boundaries, otherwise a single document).
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting loaded Documents into smaller
// overlapping chunks. Implementations must assign a dense 0-based chunk
// index across the documents of a single call.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embedding vectors for a batch of texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the capability interface for the external vector index.
// Implementations embed record text and query strings themselves; callers
// never supply vectors. Filters are equality-only predicates on metadata
// fields.
type VectorStore interface {
	// AddDocuments indexes the given records.
	AddDocuments(ctx context.Context, docs []*schema.Document) error

	// SimilaritySearchWithScore returns up to k records matching the filter,
	// ordered ascending by vector distance to the query.
	SimilaritySearchWithScore(ctx context.Context, query string, k int, filter map[string]string) ([]schema.ScoredDocument, error)

	// DeleteByFilter removes every record matching the filter.
	DeleteByFilter(ctx context.Context, filter map[string]string) error
}
