package pipeline

import "errors"

// Error taxonomy for a question/answer turn. Handlers map these onto HTTP
// statuses; everything else is an internal error.
var (
	// ErrEmptyQuestion rejects a request before any pipeline step runs.
	ErrEmptyQuestion = errors.New("question required")

	// ErrCompletion marks a failure of the completion capability. No log
	// entry is written for the turn.
	ErrCompletion = errors.New("completion failed")

	// ErrRetrieval marks a failure of the passage index.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrStorage marks the persistent store as unreachable.
	ErrStorage = errors.New("storage unavailable")
)
