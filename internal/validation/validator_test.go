package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSizeLimit = 1024 * 1024

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validationKind(t *testing.T, err error) Kind {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)
	return verr.Kind
}

func TestValidateAcceptsTextFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "hello world\n")

	v := New(testSizeLimit)
	report, err := v.Validate(path)
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Equal(t, "notes.txt", report.FileName)
	assert.Equal(t, ".txt", report.Extension)
	assert.Equal(t, int64(12), report.SizeBytes)
	assert.True(t, strings.HasPrefix(report.ContentType, "text/plain"))
	assert.Empty(t, report.Warning)
	assert.False(t, report.ModifiedAt.IsZero())
}

func TestValidateMissingFile(t *testing.T) {
	v := New(testSizeLimit)
	_, err := v.Validate(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Equal(t, KindNotFound, validationKind(t, err))
}

func TestValidateDirectory(t *testing.T) {
	v := New(testSizeLimit)
	_, err := v.Validate(t.TempDir())
	assert.Equal(t, KindNotARegularFile, validationKind(t, err))
}

func TestValidateEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.txt", "")

	v := New(testSizeLimit)
	_, err := v.Validate(path)
	assert.Equal(t, KindEmpty, validationKind(t, err))
}

func TestValidateTooLargeReportsSizes(t *testing.T) {
	content := strings.Repeat("x", 100)
	path := writeFile(t, t.TempDir(), "big.txt", content)

	v := New(50)
	_, err := v.Validate(path)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindTooLarge, verr.Kind)
	assert.Equal(t, int64(100), verr.Size)
	assert.Equal(t, int64(50), verr.Limit)
}

func TestValidateSizeCheckedBeforeExtension(t *testing.T) {
	// An empty file with an unsupported extension fails on size first.
	path := writeFile(t, t.TempDir(), "empty.exe", "")

	v := New(testSizeLimit)
	_, err := v.Validate(path)
	assert.Equal(t, KindEmpty, validationKind(t, err))
}

func TestValidateUnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "binary.exe", "MZ......")

	v := New(testSizeLimit)
	_, err := v.Validate(path)
	assert.Equal(t, KindUnsupportedType, validationKind(t, err))
}

func TestValidateContentTypeMismatch(t *testing.T) {
	// A PDF header inside a .txt file must be caught by content sniffing.
	path := writeFile(t, t.TempDir(), "fake.txt", "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	v := New(testSizeLimit)
	_, err := v.Validate(path)
	assert.Equal(t, KindTypeMismatch, validationKind(t, err))
}

func TestValidateUnsafePath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "evil;name.txt", "plain text content\n")

	v := New(testSizeLimit)
	_, err := v.Validate(path)
	assert.Equal(t, KindUnsafePath, validationKind(t, err))
}

func TestValidateUnavailableSnifferWarns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "hello\n")

	unavailable := func(string) (string, bool) { return "", false }
	v := NewWithSniffer(testSizeLimit, unavailable)

	report, err := v.Validate(path)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.ContentType)
	assert.NotEmpty(t, report.Warning)
}

func TestValidateCustomSnifferMismatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.md", "# heading\n")

	v := NewWithSniffer(testSizeLimit, func(string) (string, bool) {
		return "application/zip", true
	})
	_, err := v.Validate(path)
	assert.Equal(t, KindTypeMismatch, validationKind(t, err))
}
