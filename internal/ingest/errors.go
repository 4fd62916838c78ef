package ingest

import "errors"

var (
	// ErrUnsupportedFormat rejects MIME types the parser cannot handle.
	// Never retried; the document is marked failed.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument rejects input that parses to no text at all.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)
