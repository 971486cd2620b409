package docs

import "errors"

var (
	// ErrNotFound means the document id has no metadata row.
	ErrNotFound = errors.New("document not found")

	// ErrUnsupportedFormat rejects uploads the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument rejects uploads that yield no indexable text.
	ErrEmptyDocument = errors.New("document has no indexable text")

	// ErrDuplicateDocument rejects an upload whose content is already
	// indexed under the same filename.
	ErrDuplicateDocument = errors.New("document already ingested")

	// ErrIndexWrite marks a failure to update the passage index.
	ErrIndexWrite = errors.New("index write failed")
)
