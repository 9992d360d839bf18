package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docdex/internal/database/milvus"
	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
	"docdex/pkg/logger"
)

// fieldColumns maps record metadata keys to Milvus column names. Filters may
// only reference these keys.
var fieldColumns = map[string]string{
	schema.MetadataKeyType:       milvus.FieldDocType,
	schema.MetadataKeySource:     milvus.FieldSource,
	schema.MetadataKeyChunkIndex: milvus.FieldChunkIndex,
}

var outputFields = []string{
	milvus.FieldID,
	milvus.FieldText,
	milvus.FieldDocType,
	milvus.FieldSource,
	milvus.FieldChunkIndex,
	milvus.FieldPageLabel,
}

// MilvusStore implements the VectorStore capability on a Milvus collection.
// It owns the embedding model: record vectors are derived from record text
// on insert, and query strings are embedded on search. Callers never supply
// vectors.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	embedder   interfaces.EmbeddingModel
	collection string
}

// NewMilvusStore creates a store adapter over an existing Milvus connection.
func NewMilvusStore(mc *milvus.Client, embedder interfaces.EmbeddingModel, collection string, log *logger.Logger) (*MilvusStore, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding model is required")
	}
	return &MilvusStore{
		log:        log,
		client:     mc.Client,
		embedder:   embedder,
		collection: collection,
	}, nil
}

// AddDocuments embeds and inserts the given records.
func (s *MilvusStore) AddDocuments(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d documents: %w", len(docs), err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}

	ids := make([]string, len(docs))
	docTypes := make([]string, len(docs))
	sources := make([]string, len(docs))
	chunkIndexes := make([]int64, len(docs))
	pageLabels := make([]string, len(docs))
	dim := 0

	for i, doc := range docs {
		ids[i] = doc.ID
		if len(embeddings[i]) > dim {
			dim = len(embeddings[i])
		}
		if t, ok := doc.Metadata[schema.MetadataKeyType].(string); ok {
			docTypes[i] = t
		}
		if src, ok := doc.Source(); ok {
			sources[i] = src
		}
		chunkIndexes[i] = -1 // summaries carry no chunk position
		if idx, ok := doc.ChunkIndex(); ok {
			chunkIndexes[i] = int64(idx)
		}
		if p, ok := doc.Metadata[schema.MetadataKeyPageLabel].(string); ok {
			pageLabels[i] = p
		}
	}

	s.log.WithPayload(map[string]interface{}{
		"collection": s.collection,
		"count":      len(docs),
	}).Info("Inserting documents into Milvus")

	_, err = s.client.Insert(ctx, s.collection, "", /* default partition */
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnVarChar(milvus.FieldText, texts),
		entity.NewColumnVarChar(milvus.FieldDocType, docTypes),
		entity.NewColumnVarChar(milvus.FieldSource, sources),
		entity.NewColumnInt64(milvus.FieldChunkIndex, chunkIndexes),
		entity.NewColumnVarChar(milvus.FieldPageLabel, pageLabels),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert data into Milvus: %w", err)
	}

	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection %s: %w", s.collection, err)
	}
	return nil
}

// SimilaritySearchWithScore embeds the query and returns up to k records
// matching the filter, ordered ascending by L2 distance.
func (s *MilvusStore) SimilaritySearchWithScore(ctx context.Context, query string, k int, filter map[string]string) ([]schema.ScoredDocument, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filterExpr, err := buildFilterExpression(filter)
	if err != nil {
		return nil, err
	}

	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)
	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		milvus.FieldEmbedding, entity.L2, k, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []schema.ScoredDocument
	for _, res := range searchResults {
		docs, err := s.parseResult(res)
		if err != nil {
			s.log.WithError(err).Warn("Skipping malformed Milvus search result")
			continue
		}
		results = append(results, docs...)
	}
	return results, nil
}

// DeleteByFilter removes every record matching the filter.
func (s *MilvusStore) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	filterExpr, err := buildFilterExpression(filter)
	if err != nil {
		return err
	}
	if filterExpr == "" {
		return fmt.Errorf("refusing to delete with an empty filter")
	}

	if err := s.client.Delete(ctx, s.collection, "", filterExpr); err != nil {
		return fmt.Errorf("failed to delete from Milvus: %w", err)
	}
	return nil
}

func (s *MilvusStore) parseResult(res client.SearchResult) ([]schema.ScoredDocument, error) {
	columns := make(map[string]entity.Column, len(res.Fields))
	for _, field := range res.Fields {
		columns[field.Name()] = field
	}

	varCharData := func(name string) []string {
		if col, ok := columns[name].(*entity.ColumnVarChar); ok {
			return col.Data()
		}
		return nil
	}

	idData := varCharData(milvus.FieldID)
	if idData == nil {
		return nil, fmt.Errorf("search result is missing the %s column", milvus.FieldID)
	}
	textData := varCharData(milvus.FieldText)
	typeData := varCharData(milvus.FieldDocType)
	sourceData := varCharData(milvus.FieldSource)
	pageData := varCharData(milvus.FieldPageLabel)

	var chunkIndexData []int64
	if col, ok := columns[milvus.FieldChunkIndex].(*entity.ColumnInt64); ok {
		chunkIndexData = col.Data()
	}

	results := make([]schema.ScoredDocument, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		doc := &schema.Document{
			ID:       idData[i],
			Metadata: make(map[string]interface{}, 4),
		}
		if textData != nil {
			doc.Text = textData[i]
		}
		if typeData != nil {
			doc.Metadata[schema.MetadataKeyType] = typeData[i]
		}
		if sourceData != nil && sourceData[i] != "" {
			doc.Metadata[schema.MetadataKeySource] = sourceData[i]
		}
		if chunkIndexData != nil && chunkIndexData[i] >= 0 {
			doc.Metadata[schema.MetadataKeyChunkIndex] = int(chunkIndexData[i])
		}
		if pageData != nil && pageData[i] != "" {
			doc.Metadata[schema.MetadataKeyPageLabel] = pageData[i]
		}
		results = append(results, schema.ScoredDocument{Document: doc, Score: res.Scores[i]})
	}
	return results, nil
}

// buildFilterExpression converts equality predicates into a Milvus boolean
// expression. Only known metadata keys are accepted; values are quoted as
// strings except for the integer chunk index.
func buildFilterExpression(filter map[string]string) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}

	conditions := make([]string, 0, len(filter))
	for _, key := range []string{schema.MetadataKeyType, schema.MetadataKeySource, schema.MetadataKeyChunkIndex} {
		value, ok := filter[key]
		if !ok {
			continue
		}
		column := fieldColumns[key]
		if key == schema.MetadataKeyChunkIndex {
			conditions = append(conditions, fmt.Sprintf("%s == %s", column, value))
		} else {
			conditions = append(conditions, fmt.Sprintf("%s == %q", column, value))
		}
	}
	if len(conditions) != len(filter) {
		return "", fmt.Errorf("filter contains unsupported keys: %v", filter)
	}
	return strings.Join(conditions, " and "), nil
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
