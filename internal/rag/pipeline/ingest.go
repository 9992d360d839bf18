package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/loaders"
	"docdex/internal/rag/schema"
	"docdex/internal/validation"
	"docdex/pkg/logger"
)

// IngestionReport summarizes a completed ingestion run.
type IngestionReport struct {
	Success       bool   `json:"success"`
	SourceID      string `json:"source_id"`
	SummaryStored bool   `json:"summary_stored"`
	ChunksStored  int    `json:"chunks_stored"`
	Collection    string `json:"collection"`
}

// IngestionPipeline turns a file on disk into one summary record plus N chunk
// records in the vector store. Re-ingesting a file with the same name first
// removes all records from the previous run, so the operation is idempotent.
type IngestionPipeline struct {
	validator  *validation.Validator
	splitter   interfaces.Splitter
	store      interfaces.VectorStore
	collection string
	log        *logger.Logger
}

// NewIngestionPipeline wires the pipeline stages together. The collection
// name is informational only; the store is already bound to it.
func NewIngestionPipeline(validator *validation.Validator, splitter interfaces.Splitter, store interfaces.VectorStore, collection string, log *logger.Logger) *IngestionPipeline {
	return &IngestionPipeline{
		validator:  validator,
		splitter:   splitter,
		store:      store,
		collection: collection,
		log:        log,
	}
}

// Ingest validates, loads, summarizes and chunks the file at path, then
// writes the records to the vector store. The summary is written before the
// chunks, so a summary without chunks is the only possible partial state.
func (p *IngestionPipeline) Ingest(ctx context.Context, path string) (*IngestionReport, error) {
	report, err := p.validator.Validate(path)
	if err != nil {
		return nil, err
	}
	if report.Warning != "" {
		p.log.WithPayload(map[string]interface{}{"file": report.FileName}).Warn(report.Warning)
	}

	loader, err := loaders.ForExtension(report.Extension)
	if err != nil {
		return nil, err
	}
	docs, err := loader.Load(ctx, report.AbsolutePath)
	if err != nil {
		return nil, &LoadError{Kind: KindParseFailure, Path: path, Err: err}
	}

	fullText := joinDocuments(docs)
	if strings.TrimSpace(fullText) == "" {
		return nil, &LoadError{Kind: KindEmptyContent, Path: path}
	}

	// The source identifier is the validated file name, which ties the
	// summary and chunk records together and makes re-ingestion replace the
	// previous run.
	sourceID := report.FileName

	p.log.WithPayload(map[string]interface{}{
		"source": sourceID,
		"pages":  len(docs),
	}).Info("Starting document ingestion")

	if err := p.store.DeleteByFilter(ctx, map[string]string{schema.MetadataKeySource: sourceID}); err != nil {
		return nil, &StoreWriteError{Phase: PhaseCleanup, SourceID: sourceID, Err: err}
	}

	summary := &schema.Document{
		ID:   uuid.NewString(),
		Text: buildSummaryText(sourceID, fullText),
		Metadata: map[string]interface{}{
			schema.MetadataKeyType:     schema.RecordTypeSummary,
			schema.MetadataKeySource:   sourceID,
			schema.MetadataKeyFileName: report.FileName,
		},
	}
	if err := p.store.AddDocuments(ctx, []*schema.Document{summary}); err != nil {
		return nil, &StoreWriteError{Phase: PhaseSummary, SourceID: sourceID, Err: err}
	}

	chunks, err := p.splitter.Split(ctx, docs)
	if err != nil {
		return nil, &StoreWriteError{Phase: PhaseChunks, SourceID: sourceID, SummaryStored: true, Err: err}
	}
	for _, chunk := range chunks {
		chunk.ID = uuid.NewString()
		chunk.Metadata[schema.MetadataKeyType] = schema.RecordTypeChunk
		chunk.Metadata[schema.MetadataKeySource] = sourceID
	}
	if err := p.store.AddDocuments(ctx, chunks); err != nil {
		return nil, &StoreWriteError{Phase: PhaseChunks, SourceID: sourceID, SummaryStored: true, Err: err}
	}

	p.log.WithPayload(map[string]interface{}{
		"source": sourceID,
		"chunks": len(chunks),
	}).Info("Document ingestion complete")

	return &IngestionReport{
		Success:       true,
		SourceID:      sourceID,
		SummaryStored: true,
		ChunksStored:  len(chunks),
		Collection:    p.collection,
	}, nil
}

// joinDocuments concatenates loaded pages in order, separated by blank lines.
func joinDocuments(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Text != "" {
			parts = append(parts, d.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// summaryHeadLimit bounds the text embedded for the coarse retrieval stage.
const summaryHeadLimit = 2000

// buildSummaryText produces the document-level record text: the file name
// followed by the head of the content, enough to situate the document in
// embedding space without embedding the whole file twice.
func buildSummaryText(sourceID, fullText string) string {
	head := fullText
	if len(head) > summaryHeadLimit {
		head = head[:summaryHeadLimit]
	}
	return sourceID + "\n\n" + head
}
