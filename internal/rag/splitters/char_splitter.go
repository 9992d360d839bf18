package splitters

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
)

// separators, tried in order: paragraph break, line break, sentence
// punctuation. A text containing none of them is cut at arbitrary character
// boundaries.
var separators = []string{"\n\n", "\n", ". ", "! ", "? "}

// CharacterSplitter splits documents into chunks of at most ChunkSize
// characters, preferring splits at paragraph, line and sentence boundaries.
// Consecutive chunks share ChunkOverlap characters of context. Chunk indices
// are dense and 0-based across the documents of a single Split call.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharacterSplitter creates a CharacterSplitter. The overlap must be
// smaller than the chunk size.
func NewCharacterSplitter(chunkSize, chunkOverlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return &CharacterSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split chunks every document and tags each chunk with its position.
func (s *CharacterSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document
	index := 0

	for _, doc := range docs {
		for _, piece := range s.splitText(doc.Text, separators) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunk := &schema.Document{
				ID:       uuid.New().String(),
				Text:     piece,
				Metadata: copyMetadata(doc.Metadata),
			}
			chunk.Metadata[schema.MetadataKeyChunkIndex] = index
			chunks = append(chunks, chunk)
			index++
		}
	}

	return chunks, nil
}

// splitText recursively splits text with the given separator hierarchy and
// merges the fragments back into chunks of at most ChunkSize runes.
func (s *CharacterSplitter) splitText(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.ChunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.hardCut(text)
	}

	sep, rest := seps[0], seps[1:]
	if !strings.Contains(text, sep) {
		return s.splitText(text, rest)
	}

	var fragments []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > s.ChunkSize {
			fragments = append(fragments, s.splitText(part, rest)...)
		} else {
			fragments = append(fragments, part)
		}
	}
	return s.merge(fragments)
}

// merge greedily packs fragments into chunks, seeding each new chunk with the
// overlap tail of the previous one. Every fragment is already within
// ChunkSize, so the result never exceeds it.
func (s *CharacterSplitter) merge(fragments []string) []string {
	var chunks []string
	var current []rune

	for _, fragment := range fragments {
		fr := []rune(fragment)
		if len(current) > 0 && len(current)+len(fr) > s.ChunkSize {
			chunks = append(chunks, string(current))

			tail := current[max(0, len(current)-s.ChunkOverlap):]
			current = append([]rune(nil), tail...)
			if len(current)+len(fr) > s.ChunkSize {
				current = current[:0]
			}
		}
		current = append(current, fr...)
	}

	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// hardCut slices text into fixed windows stepped by ChunkSize-ChunkOverlap.
func (s *CharacterSplitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md)+2)
	for k, v := range md {
		out[k] = v
	}
	return out
}

var _ interfaces.Splitter = (*CharacterSplitter)(nil)
