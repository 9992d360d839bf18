package pipeline

import (
	"context"
	"fmt"
	"sort"

	"docdex/internal/rag/schema"
)

// Scan widths for the maintenance helpers below. Vector stores have no list
// primitive, so these use a wide similarity search with an empty query.
const (
	listScanWidth        = 1000
	reconstructScanWidth = 10000
)

// Inspector answers maintenance queries about the indexed corpus: which
// documents exist, how they decompose into chunks, and corpus-level counts.
type Inspector struct {
	scope DocumentScope
}

// NewInspector builds an Inspector over the given scope.
func NewInspector(scope DocumentScope) *Inspector {
	return &Inspector{scope: scope}
}

// ListSources returns the source identifiers of all indexed documents, sorted
// lexicographically.
func (in *Inspector) ListSources(ctx context.Context) ([]string, error) {
	summaries, err := in.scope.SearchSummaries(ctx, "", listScanWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to list summary records: %w", err)
	}

	seen := make(map[string]struct{}, len(summaries))
	sources := make([]string, 0, len(summaries))
	for _, s := range summaries {
		src, ok := s.Document.Source()
		if !ok {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, nil
}

// Reconstruct returns the chunks of one document in their original order.
// The result is empty when the document is unknown.
func (in *Inspector) Reconstruct(ctx context.Context, sourceID string) ([]*schema.Document, error) {
	chunks, err := in.scope.SearchChunks(ctx, "", reconstructScanWidth, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for source %s: %w", sourceID, err)
	}

	docs := make([]*schema.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, c.Document)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := docs[i].ChunkIndex()
		b, _ := docs[j].ChunkIndex()
		return a < b
	})
	return docs, nil
}

// Summary returns the summary record of one document, or nil when the
// document is unknown.
func (in *Inspector) Summary(ctx context.Context, sourceID string) (*schema.Document, error) {
	summaries, err := in.scope.SearchSummaries(ctx, "", listScanWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary records: %w", err)
	}
	for _, s := range summaries {
		if src, ok := s.Document.Source(); ok && src == sourceID {
			return s.Document, nil
		}
	}
	return nil, nil
}

// Stats describes the indexed corpus.
type Stats struct {
	TotalSummaries  int      `json:"total_summaries"`
	TotalChunks     int      `json:"total_chunks"`
	UniqueDocuments int      `json:"unique_documents"`
	AvgChunksPerDoc float64  `json:"avg_chunks_per_doc"`
	SourceIDs       []string `json:"source_ids"`
}

// CorpusStats counts summaries and chunks across the whole index.
func (in *Inspector) CorpusStats(ctx context.Context) (*Stats, error) {
	summaries, err := in.scope.SearchSummaries(ctx, "", listScanWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary records: %w", err)
	}
	chunks, err := in.scope.SearchChunks(ctx, "", reconstructScanWidth, "")
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk records: %w", err)
	}

	seen := make(map[string]struct{})
	var sources []string
	for _, s := range summaries {
		if src, ok := s.Document.Source(); ok {
			if _, dup := seen[src]; !dup {
				seen[src] = struct{}{}
				sources = append(sources, src)
			}
		}
	}
	sort.Strings(sources)

	stats := &Stats{
		TotalSummaries:  len(summaries),
		TotalChunks:     len(chunks),
		UniqueDocuments: len(sources),
		SourceIDs:       sources,
	}
	if stats.UniqueDocuments > 0 {
		stats.AvgChunksPerDoc = float64(stats.TotalChunks) / float64(stats.UniqueDocuments)
	}
	return stats, nil
}
