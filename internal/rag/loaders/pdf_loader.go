package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/schema"
)

// PdfLoader implements the Loader interface for PDF files. It extracts the
// plain text of each page and returns one Document per non-empty page, with
// the page number preserved as metadata.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file and extracts per-page text.
func (l *PdfLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	fileName := filepath.Base(path)
	fonts := make(map[string]*pdf.Font)

	var documents []*schema.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d of %s: %w", i, path, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		documents = append(documents, &schema.Document{
			ID:   uuid.New().String(),
			Text: normalizeNewlines(text),
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:  fileName,
				schema.MetadataKeyPageLabel: fmt.Sprintf("%d", i),
			},
		})
	}

	return documents, nil
}

var _ interfaces.Loader = (*PdfLoader)(nil)
