package loaders

import (
	"fmt"
	"strings"

	"docdex/internal/rag/interfaces"
)

// ForExtension returns the loader responsible for the given file extension.
// The supported set matches the validator's: .txt, .md and .pdf.
func ForExtension(ext string) (interfaces.Loader, error) {
	switch strings.ToLower(ext) {
	case ".txt":
		return NewTxtLoader(), nil
	case ".md":
		return NewMarkdownLoader(), nil
	case ".pdf":
		return NewPdfLoader(), nil
	default:
		return nil, fmt.Errorf("no loader for file type %q", ext)
	}
}

// normalizeNewlines converts Windows and old Mac line endings to plain LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
