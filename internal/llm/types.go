package llm

import "errors"

var (
	// ErrEmbeddingUnavailable marks a transient embedding service failure.
	// Callers retry within their bounded-backoff budget, then surface it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrGenerationUnavailable marks a transient generation service failure,
	// surfaced after the client's single bounded retry.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
