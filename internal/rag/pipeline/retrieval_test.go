package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdex/internal/rag/schema"
	"docdex/pkg/logger"
)

// fakeScope serves canned summaries and per-source chunks.
type fakeScope struct {
	summaries      []schema.ScoredDocument
	chunksBySource map[string][]schema.ScoredDocument
	summaryErr     error
	chunkErr       error
}

func (f *fakeScope) SearchSummaries(ctx context.Context, query string, k int) ([]schema.ScoredDocument, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if len(f.summaries) > k {
		return f.summaries[:k], nil
	}
	return f.summaries, nil
}

func (f *fakeScope) SearchChunks(ctx context.Context, query string, k int, sourceID string) ([]schema.ScoredDocument, error) {
	if f.chunkErr != nil {
		return nil, f.chunkErr
	}
	var hits []schema.ScoredDocument
	if sourceID == "" {
		for _, chunks := range f.chunksBySource {
			hits = append(hits, chunks...)
		}
	} else {
		hits = f.chunksBySource[sourceID]
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func summaryHit(source string, score float32) schema.ScoredDocument {
	return schema.ScoredDocument{
		Document: &schema.Document{
			ID:   "summary-" + source,
			Text: "summary of " + source,
			Metadata: map[string]interface{}{
				schema.MetadataKeyType:   schema.RecordTypeSummary,
				schema.MetadataKeySource: source,
			},
		},
		Score: score,
	}
}

func chunkHit(source string, index int, score float32) schema.ScoredDocument {
	return schema.ScoredDocument{
		Document: &schema.Document{
			ID:   "chunk",
			Text: "chunk text",
			Metadata: map[string]interface{}{
				schema.MetadataKeyType:       schema.RecordTypeChunk,
				schema.MetadataKeySource:     source,
				schema.MetadataKeyChunkIndex: index,
			},
		},
		Score: score,
	}
}

func testLog() *logger.Logger { return logger.New("test") }

func TestRetrievePreservesCoarseOrdering(t *testing.T) {
	// Document A wins the coarse stage, so its chunks come first even though
	// document B's chunk has a better (lower) distance. Chunk scores from
	// different documents are never compared.
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{
			summaryHit("a.txt", 0.1),
			summaryHit("b.txt", 0.2),
		},
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {chunkHit("a.txt", 0, 0.9), chunkHit("a.txt", 1, 1.0)},
			"b.txt": {chunkHit("b.txt", 0, 0.05)},
		},
	}

	r := NewHierarchicalRetriever(scope, 2, 2, testLog())
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 3)

	src0, _ := results[0].Document.Source()
	src1, _ := results[1].Document.Source()
	src2, _ := results[2].Document.Source()
	assert.Equal(t, "a.txt", src0)
	assert.Equal(t, "a.txt", src1)
	assert.Equal(t, "b.txt", src2)

	assert.Equal(t, float32(0.9), results[0].Score)
	assert.Equal(t, float32(0.1), results[0].ParentSummaryScore)
	assert.Equal(t, float32(0.2), results[2].ParentSummaryScore)
}

func TestRetrieveRespectsBudgets(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{
			summaryHit("a.txt", 0.1),
			summaryHit("b.txt", 0.2),
		},
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {chunkHit("a.txt", 0, 0.3), chunkHit("a.txt", 1, 0.4), chunkHit("a.txt", 2, 0.5), chunkHit("a.txt", 3, 0.6)},
			"b.txt": {chunkHit("b.txt", 0, 0.3), chunkHit("b.txt", 1, 0.4)},
		},
	}

	r := NewHierarchicalRetriever(scope, 1, 2, testLog())
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	// One document, at most two chunks from it.
	require.Len(t, results, 2)
	for _, res := range results {
		src, _ := res.Document.Source()
		assert.Equal(t, "a.txt", src)
	}
}

func TestRetrieveEmptyCoarseStage(t *testing.T) {
	scope := &fakeScope{}
	r := NewHierarchicalRetriever(scope, 3, 5, testLog())

	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrieveSkipsSummariesWithoutSource(t *testing.T) {
	orphan := schema.ScoredDocument{
		Document: &schema.Document{
			ID:       "orphan",
			Metadata: map[string]interface{}{schema.MetadataKeyType: schema.RecordTypeSummary},
		},
		Score: 0.05,
	}
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{orphan, summaryHit("a.txt", 0.1)},
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {chunkHit("a.txt", 0, 0.3)},
		},
	}

	r := NewHierarchicalRetriever(scope, 2, 5, testLog())
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 1)

	src, _ := results[0].Document.Source()
	assert.Equal(t, "a.txt", src)
}

func TestRetrieveCoarseError(t *testing.T) {
	scope := &fakeScope{summaryErr: errors.New("milvus down")}
	r := NewHierarchicalRetriever(scope, 3, 5, testLog())

	_, err := r.Retrieve(context.Background(), "query")
	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "coarse", rerr.Stage)
}

func TestRetrieveFineError(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{summaryHit("a.txt", 0.1)},
		chunkErr:  errors.New("milvus down"),
	}
	r := NewHierarchicalRetriever(scope, 3, 5, testLog())

	_, err := r.Retrieve(context.Background(), "query")
	var rerr *RetrievalError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "fine", rerr.Stage)
}

func TestRetrieveSimpleStripsScores(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{summaryHit("a.txt", 0.1)},
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {chunkHit("a.txt", 0, 0.3), chunkHit("a.txt", 1, 0.4)},
		},
	}
	r := NewHierarchicalRetriever(scope, 3, 5, testLog())

	docs, err := r.RetrieveSimple(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	for i, d := range docs {
		idx, ok := d.ChunkIndex()
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
}
