package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
	"docdex/pkg/logger"
)

// DocumentScope abstracts where summary and chunk records live and how a fine
// search is narrowed to one document. The metadata scope keeps both record
// types in one collection; the dual-store scope keeps them in two.
type DocumentScope interface {
	// SearchSummaries returns up to k summary records closest to the query.
	SearchSummaries(ctx context.Context, query string, k int) ([]schema.ScoredDocument, error)
	// SearchChunks returns up to k chunk records closest to the query. A
	// non-empty sourceID restricts the search to that document's chunks; an
	// empty sourceID searches across all documents.
	SearchChunks(ctx context.Context, query string, k int, sourceID string) ([]schema.ScoredDocument, error)
}

// MetadataScope partitions a single collection by the record type field.
type MetadataScope struct {
	store interfaces.VectorStore
}

// NewMetadataScope builds a scope over one collection holding both record
// types.
func NewMetadataScope(store interfaces.VectorStore) *MetadataScope {
	return &MetadataScope{store: store}
}

func (s *MetadataScope) SearchSummaries(ctx context.Context, query string, k int) ([]schema.ScoredDocument, error) {
	return s.store.SimilaritySearchWithScore(ctx, query, k, map[string]string{
		schema.MetadataKeyType: schema.RecordTypeSummary,
	})
}

func (s *MetadataScope) SearchChunks(ctx context.Context, query string, k int, sourceID string) ([]schema.ScoredDocument, error) {
	filter := map[string]string{schema.MetadataKeyType: schema.RecordTypeChunk}
	if sourceID != "" {
		filter[schema.MetadataKeySource] = sourceID
	}
	return s.store.SimilaritySearchWithScore(ctx, query, k, filter)
}

// DualStoreScope keeps summaries and chunks in separate collections, each
// behind its own store. Records still carry the type field so either layout
// round-trips through the same readers.
type DualStoreScope struct {
	summaries interfaces.VectorStore
	chunks    interfaces.VectorStore
}

// NewDualStoreScope builds a scope over dedicated summary and chunk stores.
func NewDualStoreScope(summaries, chunks interfaces.VectorStore) *DualStoreScope {
	return &DualStoreScope{summaries: summaries, chunks: chunks}
}

func (s *DualStoreScope) SearchSummaries(ctx context.Context, query string, k int) ([]schema.ScoredDocument, error) {
	return s.summaries.SimilaritySearchWithScore(ctx, query, k, nil)
}

func (s *DualStoreScope) SearchChunks(ctx context.Context, query string, k int, sourceID string) ([]schema.ScoredDocument, error) {
	var filter map[string]string
	if sourceID != "" {
		filter = map[string]string{schema.MetadataKeySource: sourceID}
	}
	return s.chunks.SimilaritySearchWithScore(ctx, query, k, filter)
}

// HierarchicalRetriever answers a query in two stages: a coarse search over
// document summaries selects which documents are relevant, then a fine search
// inside each selected document returns its best chunks. Results keep the
// coarse ordering; chunk scores from different documents are never compared
// or re-sorted against each other.
type HierarchicalRetriever struct {
	scope         DocumentScope
	nDocs         int
	nChunksPerDoc int
	log           *logger.Logger
}

// NewHierarchicalRetriever builds a retriever that selects up to nDocs
// documents and up to nChunksPerDoc chunks from each.
func NewHierarchicalRetriever(scope DocumentScope, nDocs, nChunksPerDoc int, log *logger.Logger) *HierarchicalRetriever {
	return &HierarchicalRetriever{
		scope:         scope,
		nDocs:         nDocs,
		nChunksPerDoc: nChunksPerDoc,
		log:           log,
	}
}

// Retrieve runs the two-stage search. An empty coarse stage yields an empty
// result, not an error. Summary hits without a source identifier are skipped.
func (r *HierarchicalRetriever) Retrieve(ctx context.Context, query string) ([]schema.RetrievalResult, error) {
	summaries, err := r.scope.SearchSummaries(ctx, query, r.nDocs)
	if err != nil {
		return nil, &RetrievalError{Stage: "coarse", Err: err}
	}
	if len(summaries) == 0 {
		r.log.WithPayload(map[string]interface{}{"query_len": len(query)}).Info("Coarse stage matched no documents")
		return []schema.RetrievalResult{}, nil
	}

	// The fine searches are independent, one per coarse hit. perHit is
	// indexed by coarse position so the concatenation below preserves the
	// coarse ordering regardless of completion order.
	perHit := make([][]schema.RetrievalResult, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	for i, hit := range summaries {
		sourceID, ok := hit.Document.Source()
		if !ok {
			r.log.WithPayload(map[string]interface{}{
				"id": hit.Document.ID,
			}).Warn("Summary record has no source identifier, skipping")
			continue
		}
		i, hit, sourceID := i, hit, sourceID
		g.Go(func() error {
			chunks, err := r.scope.SearchChunks(gctx, query, r.nChunksPerDoc, sourceID)
			if err != nil {
				return &RetrievalError{Stage: "fine", Err: err}
			}
			results := make([]schema.RetrievalResult, 0, len(chunks))
			for _, c := range chunks {
				results = append(results, schema.RetrievalResult{
					Document:           c.Document,
					Score:              c.Score,
					ParentSummaryScore: hit.Score,
				})
			}
			perHit[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := make([]schema.RetrievalResult, 0, len(summaries)*r.nChunksPerDoc)
	for _, results := range perHit {
		combined = append(combined, results...)
	}
	return combined, nil
}

// RetrieveSimple runs the same two-stage search but strips the score
// annotations, returning only the ordered chunk records.
func (r *HierarchicalRetriever) RetrieveSimple(ctx context.Context, query string) ([]*schema.Document, error) {
	results, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	docs := make([]*schema.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, res.Document)
	}
	return docs, nil
}
