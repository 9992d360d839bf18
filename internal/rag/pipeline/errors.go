package pipeline

import "fmt"

// Load error kinds.
const (
	// KindEmptyContent means the file passed validation but produced no
	// non-whitespace text.
	KindEmptyContent = "empty_content"
	// KindParseFailure means the loader could not decode the file format.
	KindParseFailure = "parse_failure"
)

// LoadError describes a failure while turning a validated file into text.
type LoadError struct {
	Kind string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindEmptyContent:
		return fmt.Sprintf("file %s contains no extractable text", e.Path)
	default:
		return fmt.Sprintf("failed to parse file %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Ingestion write phases, in execution order.
const (
	PhaseCleanup = "cleanup"
	PhaseSummary = "summary"
	PhaseChunks  = "chunks"
)

// StoreWriteError reports a failed vector store write during ingestion. It
// records which phase failed and what had already been persisted, so a caller
// can tell a partially ingested document from an untouched one.
type StoreWriteError struct {
	Phase         string
	SourceID      string
	SummaryStored bool
	ChunksStored  int
	Err           error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed for source %s during %s phase (summary stored: %t, chunks stored: %d): %v",
		e.SourceID, e.Phase, e.SummaryStored, e.ChunksStored, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// RetrievalError wraps a store failure during hierarchical search, tagged
// with the stage ("coarse" or "fine") that failed.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s retrieval stage failed: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
