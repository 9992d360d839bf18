package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdex/internal/rag/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestForExtension(t *testing.T) {
	for _, ext := range []string{".txt", ".md", ".pdf", ".TXT", ".Md"} {
		l, err := ForExtension(ext)
		require.NoError(t, err, ext)
		assert.NotNil(t, l)
	}

	_, err := ForExtension(".docx")
	assert.Error(t, err)
}

func TestTxtLoaderNormalizesNewlines(t *testing.T) {
	path := writeFile(t, "notes.txt", "line one\r\nline two\rline three\n")

	docs, err := NewTxtLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "line one\nline two\nline three\n", docs[0].Text)
	assert.Equal(t, "notes.txt", docs[0].Metadata[schema.MetadataKeyFileName])
	assert.NotEmpty(t, docs[0].ID)
}

func TestTxtLoaderMissingFile(t *testing.T) {
	_, err := NewTxtLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestMarkdownLoaderStripsStructure(t *testing.T) {
	content := "# Title\n\nSome **bold** and *italic* text with a [link](https://example.com) " +
		"and an image ![alt](pic.png).\n\n## Section\n\nPlain paragraph.\n"
	path := writeFile(t, "doc.md", content)

	docs, err := NewMarkdownLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	text := docs[0].Text
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "![")
	assert.NotContains(t, text, "https://example.com")
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "bold")
	assert.Contains(t, text, "italic")
	assert.Contains(t, text, "link")
	assert.Contains(t, text, "Plain paragraph.")
}

func TestMarkdownLoaderKeepsFileName(t *testing.T) {
	path := writeFile(t, "readme.md", "just text\n")

	docs, err := NewMarkdownLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "readme.md", docs[0].Metadata[schema.MetadataKeyFileName])
}
