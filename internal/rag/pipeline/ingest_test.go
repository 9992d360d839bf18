package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdex/internal/rag/schema"
	"docdex/internal/rag/splitters"
	"docdex/internal/validation"
	"docdex/pkg/logger"
)

// fakeVectorStore records calls in order so tests can assert write sequencing.
type fakeVectorStore struct {
	added     [][]*schema.Document
	deleted   []map[string]string
	addErrAt  int // 1-based AddDocuments call that fails, 0 means never
	deleteErr error
}

func (f *fakeVectorStore) AddDocuments(ctx context.Context, docs []*schema.Document) error {
	if f.addErrAt > 0 && len(f.added)+1 == f.addErrAt {
		return errors.New("store unavailable")
	}
	f.added = append(f.added, docs)
	return nil
}

func (f *fakeVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int, filter map[string]string) ([]schema.ScoredDocument, error) {
	return nil, nil
}

func (f *fakeVectorStore) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, filter)
	return nil
}

func newTestPipeline(t *testing.T, store *fakeVectorStore) *IngestionPipeline {
	t.Helper()
	splitter, err := splitters.NewCharacterSplitter(500, 50)
	require.NoError(t, err)
	validator := validation.New(10 * 1024 * 1024)
	return NewIngestionPipeline(validator, splitter, store, "documents", logger.New("test"))
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestWritesSummaryThenChunks(t *testing.T) {
	store := &fakeVectorStore{}
	p := newTestPipeline(t, store)

	content := strings.Repeat("alpha beta gamma. ", 60) // forces multiple chunks
	path := writeUpload(t, "report.txt", content)

	report, err := p.Ingest(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "report.txt", report.SourceID)
	assert.True(t, report.SummaryStored)
	assert.Greater(t, report.ChunksStored, 1)
	assert.Equal(t, "documents", report.Collection)

	// Old records are removed before anything is written.
	require.Len(t, store.deleted, 1)
	assert.Equal(t, map[string]string{schema.MetadataKeySource: "report.txt"}, store.deleted[0])

	// The summary write precedes the chunk write.
	require.Len(t, store.added, 2)
	require.Len(t, store.added[0], 1)

	summary := store.added[0][0]
	assert.Equal(t, schema.RecordTypeSummary, summary.Metadata[schema.MetadataKeyType])
	assert.Equal(t, "report.txt", summary.Metadata[schema.MetadataKeySource])
	assert.Equal(t, "report.txt", summary.Metadata[schema.MetadataKeyFileName])
	assert.True(t, strings.HasPrefix(summary.Text, "report.txt"))
	assert.NotEmpty(t, summary.ID)

	chunks := store.added[1]
	assert.Equal(t, report.ChunksStored, len(chunks))
	for i, c := range chunks {
		assert.Equal(t, schema.RecordTypeChunk, c.Metadata[schema.MetadataKeyType])
		assert.Equal(t, "report.txt", c.Metadata[schema.MetadataKeySource])
		idx, ok := c.ChunkIndex()
		require.True(t, ok)
		assert.Equal(t, i, idx)
		assert.NotEmpty(t, c.ID)
	}
}

func TestIngestRejectsInvalidFile(t *testing.T) {
	store := &fakeVectorStore{}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "empty.txt", "")
	_, err := p.Ingest(context.Background(), path)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validation.KindEmpty, verr.Kind)
	assert.Empty(t, store.added, "nothing may be written for an invalid file")
	assert.Empty(t, store.deleted)
}

func TestIngestWhitespaceOnlyFile(t *testing.T) {
	store := &fakeVectorStore{}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "blank.txt", " \n \n ")
	_, err := p.Ingest(context.Background(), path)

	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindEmptyContent, lerr.Kind)
	assert.Empty(t, store.added)
}

func TestIngestCleanupFailure(t *testing.T) {
	store := &fakeVectorStore{deleteErr: errors.New("milvus down")}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "doc.txt", "some content\n")
	_, err := p.Ingest(context.Background(), path)

	var serr *StoreWriteError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, PhaseCleanup, serr.Phase)
	assert.Equal(t, "doc.txt", serr.SourceID)
	assert.False(t, serr.SummaryStored)
	assert.Empty(t, store.added)
}

func TestIngestSummaryWriteFailure(t *testing.T) {
	store := &fakeVectorStore{addErrAt: 1}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "doc.txt", "some content\n")
	_, err := p.Ingest(context.Background(), path)

	var serr *StoreWriteError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, PhaseSummary, serr.Phase)
	assert.False(t, serr.SummaryStored)
}

func TestIngestChunkWriteFailureReportsPartialState(t *testing.T) {
	store := &fakeVectorStore{addErrAt: 2}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "doc.txt", "some content\n")
	_, err := p.Ingest(context.Background(), path)

	var serr *StoreWriteError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, PhaseChunks, serr.Phase)
	assert.True(t, serr.SummaryStored, "the summary write had already succeeded")
	assert.Equal(t, "doc.txt", serr.SourceID)
}

func TestIngestUnsupportedExtension(t *testing.T) {
	store := &fakeVectorStore{}
	p := newTestPipeline(t, store)

	path := writeUpload(t, "data.csv", "a,b,c\n1,2,3\n")
	_, err := p.Ingest(context.Background(), path)
	require.Error(t, err)
	assert.Empty(t, store.added)
}
