package domain

import "errors"

var (
	// ErrModelUnavailable signals that the embedding or generation backend
	// cannot be reached. Fatal for the operation in progress, never retried.
	ErrModelUnavailable = errors.New("model backend unavailable")
	// ErrDimensionMismatch signals a vector dimension mismatch against the
	// dimension locked at first insertion.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrExtractionFailed signals an unreadable or corrupt document.
	ErrExtractionFailed = errors.New("document extraction failed")
	// ErrUnsupportedFormat signals a document format the extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
