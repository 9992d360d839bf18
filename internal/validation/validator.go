package validation

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"
)

// expectedContentTypes maps each supported extension to the content-type
// families its sniffed type may belong to.
var expectedContentTypes = map[string][]string{
	".txt": {"text/plain", "text/x-plain"},
	".md":  {"text/plain", "text/markdown", "text/x-markdown"},
	".pdf": {"application/pdf"},
}

// unsafePatterns are rejected anywhere in the path string, a defense against
// shell or SQL injection through file names further down the pipeline.
var unsafePatterns = []string{"..", "~", "$", "`", "|", ";", "&", "\x00"}

// Report is the structured result of a successful validation, exposed to the
// caller for audit and display. It is never persisted.
type Report struct {
	Valid        bool      `json:"valid"`
	AbsolutePath string    `json:"file_path"`
	FileName     string    `json:"file_name"`
	SizeBytes    int64     `json:"file_size_bytes"`
	SizeMB       float64   `json:"file_size_mb"`
	Extension    string    `json:"file_extension"`
	ContentType  string    `json:"content_type"`
	ModifiedAt   time.Time `json:"modified_at"`
	// Warning is set when content-type sniffing was unavailable and the
	// extension/content consistency check was skipped.
	Warning string `json:"warning,omitempty"`
}

// Sniffer detects a file's content type. The boolean reports whether
// detection was available; an explicit false is the "unavailable" marker,
// never a swallowed error.
type Sniffer func(path string) (contentType string, ok bool)

// DetectContentType sniffs the content type from file content using the
// mimetype library.
func DetectContentType(path string) (string, bool) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false
	}
	return mtype.String(), true
}

// Validator gatekeeps raw input files before any processing. All checks are
// read-only.
type Validator struct {
	maxSizeBytes int64
	sniff        Sniffer
}

// New creates a Validator with the given size limit in bytes and
// content-based type sniffing.
func New(maxSizeBytes int64) *Validator {
	return NewWithSniffer(maxSizeBytes, DetectContentType)
}

// NewWithSniffer creates a Validator with a custom content-type sniffer.
func NewWithSniffer(maxSizeBytes int64, sniff Sniffer) *Validator {
	return &Validator{maxSizeBytes: maxSizeBytes, sniff: sniff}
}

// Validate runs every check in order and returns a report on success or a
// *Error describing the first failed check.
func (v *Validator) Validate(path string) (*Report, error) {
	// 1. The path must reference an existing regular file.
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Path: path}
	}
	if !info.Mode().IsRegular() {
		return nil, &Error{Kind: KindNotARegularFile, Path: path}
	}

	// 2. Size must be positive and within the limit.
	size := info.Size()
	if size == 0 {
		return nil, &Error{Kind: KindEmpty, Path: path, Size: 0}
	}
	if size > v.maxSizeBytes {
		return nil, &Error{Kind: KindTooLarge, Path: path, Size: size, Limit: v.maxSizeBytes}
	}

	// 3. Extension must be in the supported set.
	ext := strings.ToLower(filepath.Ext(path))
	expected, supported := expectedContentTypes[ext]
	if !supported {
		return nil, &Error{Kind: KindUnsupportedType, Path: path, Detail: ext}
	}

	// 4. The sniffed content type must match the extension's family. When
	// sniffing is unavailable this degrades to a warning, not a failure.
	var warning, contentType string
	detected, ok := v.sniff(path)
	if !ok {
		warning = "content-type sniffing unavailable, consistency check skipped"
	} else {
		contentType = detected
		if !matchesFamily(detected, expected) {
			return nil, &Error{
				Kind:   KindTypeMismatch,
				Path:   path,
				Detail: "extension " + ext + " but content type " + detected,
			}
		}
	}

	// 5. The path string must not contain shell metacharacters or traversal
	// patterns.
	for _, pattern := range unsafePatterns {
		if strings.Contains(path, pattern) {
			return nil, &Error{Kind: KindUnsafePath, Path: path}
		}
	}

	// 6. The file must be readable by the current process.
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindPermissionDenied, Path: path}
	}
	f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	report := &Report{
		Valid:        true,
		AbsolutePath: abs,
		FileName:     filepath.Base(path),
		SizeBytes:    size,
		SizeMB:       math.Round(float64(size)/1024/1024*100) / 100,
		Extension:    ext,
		ContentType:  contentType,
		Warning:      warning,
	}
	if ts, err := times.Stat(path); err == nil {
		report.ModifiedAt = ts.ModTime()
	}
	return report, nil
}

// matchesFamily compares a sniffed content type like "text/plain;
// charset=utf-8" against the allowed media types for an extension.
func matchesFamily(detected string, allowed []string) bool {
	mediaType := detected
	if i := strings.Index(detected, ";"); i >= 0 {
		mediaType = strings.TrimSpace(detected[:i])
	}
	for _, a := range allowed {
		if mediaType == a {
			return true
		}
	}
	return false
}
