package schema

const (
	// MetadataKeyType partitions records into summaries and chunks. The value
	// is always one of RecordTypeSummary or RecordTypeChunk.
	MetadataKeyType = "type"
	// MetadataKeySource is the stable identifier tying a document's summary
	// and all of its chunks together.
	MetadataKeySource = "source"
	// MetadataKeyChunkIndex is the 0-based position of a chunk among the
	// chunks of the same source.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyFileName is the original file name of the source document.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageLabel is the page number from the source document, when
	// the loader preserves page boundaries.
	MetadataKeyPageLabel = "page_label"
)

// Record types stored under MetadataKeyType. The set is closed: retrieval
// filtering depends on the partition being exhaustive and disjoint.
const (
	RecordTypeSummary = "summary"
	RecordTypeChunk   = "chunk"
)

// Document is the central data structure representing a piece of text and
// its associated metadata. The embedding vector is never carried here: it is
// derived from Text inside the vector store boundary.
type Document struct {
	// ID is the unique identifier for this record.
	ID string

	// Text is the string content of the record.
	Text string

	// Metadata holds arbitrary data about the record, such as type, source
	// and chunk_index.
	Metadata map[string]interface{}
}

// Source returns the source identifier from the metadata, if present.
func (d *Document) Source() (string, bool) {
	if d == nil || d.Metadata == nil {
		return "", false
	}
	s, ok := d.Metadata[MetadataKeySource].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ChunkIndex returns the chunk index from the metadata. Stores may round-trip
// the value as int, int64 or float64 depending on their codec.
func (d *Document) ChunkIndex() (int, bool) {
	if d == nil || d.Metadata == nil {
		return 0, false
	}
	switch v := d.Metadata[MetadataKeyChunkIndex].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// ScoredDocument pairs a record with its distance score from a similarity
// search. Lower scores indicate closer semantic match.
type ScoredDocument struct {
	Document *Document
	Score    float32
}

// RetrievalResult is a scored chunk annotated with the distance score of the
// summary whose coarse search produced this chunk's document scope. It is
// constructed per query and never persisted. The two scores are not
// guaranteed to be on a comparable scale.
type RetrievalResult struct {
	Document           *Document
	Score              float32
	ParentSummaryScore float32
}
