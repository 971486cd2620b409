package models

import (
	"errors"
	"time"
)

// ErrUnsupportedModel is returned when a request names a model outside the
// supported set.
var ErrUnsupportedModel = errors.New("unsupported model")

// ModelName identifies a completion model the service may route to.
type ModelName string

const (
	ModelLlama70B ModelName = "llama-3.3-70b-versatile"
	ModelLlama8B  ModelName = "llama-3.1-8b-instant"

	// DefaultModel is used when a query does not name a model.
	DefaultModel = ModelLlama70B
)

// Valid reports whether m is one of the supported models.
func (m ModelName) Valid() bool {
	switch m {
	case ModelLlama70B, ModelLlama8B:
		return true
	}
	return false
}

// Chat roles as they appear in stored history and prompt segments.
const (
	RoleSystem = "system"
	RoleHuman  = "human"
	RoleAI     = "ai"
)

// Message is one turn of a conversation, either a stored history turn or a
// prompt segment handed to the completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Passage is one retrieved unit of document text, ordered by relevance.
type Passage struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// DocumentInfo describes one stored document as listed by the API.
type DocumentInfo struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}
