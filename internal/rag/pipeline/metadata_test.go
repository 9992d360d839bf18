package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdex/internal/rag/schema"
)

func TestReconstructOrdersByChunkIndex(t *testing.T) {
	scope := &fakeScope{
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {
				chunkHit("a.txt", 2, 0.1),
				chunkHit("a.txt", 0, 0.5),
				chunkHit("a.txt", 1, 0.3),
			},
		},
	}

	in := NewInspector(scope)
	docs, err := in.Reconstruct(context.Background(), "a.txt")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	for i, d := range docs {
		idx, ok := d.ChunkIndex()
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
}

func TestReconstructUnknownSource(t *testing.T) {
	in := NewInspector(&fakeScope{chunksBySource: map[string][]schema.ScoredDocument{}})

	docs, err := in.Reconstruct(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSummaryLookup(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{
			summaryHit("a.txt", 0.1),
			summaryHit("b.txt", 0.2),
		},
	}

	in := NewInspector(scope)
	doc, err := in.Summary(context.Background(), "b.txt")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "summary of b.txt", doc.Text)

	doc, err = in.Summary(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestListSourcesDeduplicatesAndSorts(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{
			summaryHit("b.txt", 0.1),
			summaryHit("a.txt", 0.2),
			summaryHit("b.txt", 0.3),
		},
	}

	in := NewInspector(scope)
	sources, err := in.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources)
}

func TestCorpusStats(t *testing.T) {
	scope := &fakeScope{
		summaries: []schema.ScoredDocument{
			summaryHit("a.txt", 0.1),
			summaryHit("b.txt", 0.2),
		},
		chunksBySource: map[string][]schema.ScoredDocument{
			"a.txt": {chunkHit("a.txt", 0, 0.1), chunkHit("a.txt", 1, 0.2)},
			"b.txt": {chunkHit("b.txt", 0, 0.1), chunkHit("b.txt", 1, 0.2)},
		},
	}

	in := NewInspector(scope)
	stats, err := in.CorpusStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSummaries)
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueDocuments)
	assert.Equal(t, 2.0, stats.AvgChunksPerDoc)
	assert.Equal(t, []string{"a.txt", "b.txt"}, stats.SourceIDs)
}
