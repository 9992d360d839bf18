package loaders

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
)

// TxtLoader implements the Loader interface for plain text files.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load reads a text file from the given path and returns it as a single
// Document with normalized line endings.
func (l *TxtLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Text: normalizeNewlines(string(content)),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
		},
	}

	return []*schema.Document{doc}, nil
}

var _ interfaces.Loader = (*TxtLoader)(nil)
