package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Pipeline stage disagreements. These are fatal for the request or
	// training job that hits them and are never corrected automatically.
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrIndexOutOfRange     = errors.New("feature index out of range")
	ErrUnknownCategoryCode = errors.New("unknown category code")

	// ErrEncodingTimeout is returned when the sentence encoder exceeds its
	// time budget. Callers may retry with backoff.
	ErrEncodingTimeout = errors.New("encoding timeout")

	ErrMissingArtifact       = errors.New("missing artifact")
	ErrIncompatibleArtifacts = errors.New("incompatible artifacts")
)
