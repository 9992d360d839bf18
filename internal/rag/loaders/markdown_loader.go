package loaders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
)

// MarkdownLoader implements the Loader interface for Markdown (.md) files.
// Structural markers that carry no semantic content for retrieval (heading
// hashes, emphasis, image references) are stripped; the section text itself
// is preserved verbatim.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

var (
	imageRegex    = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	linkRegex     = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	headingRegex  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRegex = regexp.MustCompile(`(\*{1,3}|_{1,3})(\S(?:.*?\S)?)(\*{1,3}|_{1,3})`)
)

// Load reads a Markdown file and returns its normalized text as a single
// Document.
func (l *MarkdownLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := normalizeNewlines(string(content))
	text = imageRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "")
	text = emphasisRegex.ReplaceAllString(text, "$2")
	text = strings.TrimSpace(text)

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
		},
	}

	return []*schema.Document{doc}, nil
}

var _ interfaces.Loader = (*MarkdownLoader)(nil)
