package types

import "errors"

// Domain errors shared across packages
var (
	// ErrInvalidEncoding is returned when an uploaded payload is not valid UTF-8
	ErrInvalidEncoding = errors.New("payload is not valid UTF-8")
	// ErrMalformedInput is returned when a structured payload fails to parse
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedFormat is returned for unrecognized document format tags
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnsupportedMode is returned for unrecognized search modes
	ErrUnsupportedMode = errors.New("unsupported search mode")
	// ErrStoreUnavailable is returned when the storage collaborator fails
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrModelUnavailable is returned when the embedding collaborator fails
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// Search result validation errors
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidRank    = errors.New("rank must be >= 1")
	ErrEmptyContent   = errors.New("content cannot be empty")
)
