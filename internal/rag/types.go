package rag

import "errors"

// ErrCrossOwnerAccess is returned when an operation would touch a document
// belonging to a different owner than the caller.
var ErrCrossOwnerAccess = errors.New("document belongs to a different owner")

// QueryRequest is a question asked over one owner's documents.
type QueryRequest struct {
	OwnerID  string `json:"owner_id"`
	Question string `json:"question"`
	// TopK overrides the configured retrieval depth when positive.
	TopK int `json:"top_k,omitempty"`
}

// RetrievedChunk is one similarity-search hit.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Score      float32
	ChunkIndex int
	Page       int
}

// ContextChunk is a retrieved chunk with its text loaded, ready for context
// assembly.
type ContextChunk struct {
	RetrievedChunk
	Text string
}

// Citation points an answer back at a source chunk.
type Citation struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Page       int     `json:"page,omitempty"`
	Score      float32 `json:"score"`
}

// Answer is the generated response with its supporting citations. Citations
// list exactly the chunks whose text was given to the model.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
