package validation

import "fmt"

// Kind identifies the validation failure mode. Each check in the validator
// maps to exactly one kind.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindNotARegularFile  Kind = "not_a_regular_file"
	KindEmpty            Kind = "empty"
	KindTooLarge         Kind = "too_large"
	KindUnsupportedType  Kind = "unsupported_type"
	KindTypeMismatch     Kind = "type_mismatch"
	KindUnsafePath       Kind = "unsafe_path"
	KindPermissionDenied Kind = "permission_denied"
)

// Error is a structured validation failure. It is always raised before any
// store write occurs and is fully recoverable by the caller.
type Error struct {
	Kind   Kind
	Path   string
	Size   int64  // actual size in bytes, set for KindTooLarge and KindEmpty
	Limit  int64  // configured limit in bytes, set for KindTooLarge
	Detail string // human-readable specifics (extension, detected type, ...)
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("file does not exist: %s", e.Path)
	case KindNotARegularFile:
		return fmt.Sprintf("path is not a regular file: %s", e.Path)
	case KindEmpty:
		return fmt.Sprintf("file is empty: %s", e.Path)
	case KindTooLarge:
		return fmt.Sprintf("file too large: %.2fMB (max: %.2fMB)",
			float64(e.Size)/1024/1024, float64(e.Limit)/1024/1024)
	case KindUnsupportedType:
		return fmt.Sprintf("unsupported file type: %s", e.Detail)
	case KindTypeMismatch:
		return fmt.Sprintf("content type mismatch: %s", e.Detail)
	case KindUnsafePath:
		return fmt.Sprintf("suspicious characters detected in file path: %s", e.Path)
	case KindPermissionDenied:
		return fmt.Sprintf("file is not readable: %s", e.Path)
	default:
		return fmt.Sprintf("validation failed for %s", e.Path)
	}
}
