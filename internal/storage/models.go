package storage

import "time"

// DocumentStatus tracks where a document is in its ingestion lifecycle.
type DocumentStatus string

const (
	// StatusPending means ingestion has started but not committed.
	StatusPending DocumentStatus = "PENDING"
	// StatusIndexed means every chunk of the document is committed to the index.
	StatusIndexed DocumentStatus = "INDEXED"
	// StatusFailed means ingestion failed; terminal until re-ingestion is requested.
	StatusFailed DocumentStatus = "FAILED"
)

// DocumentRecord represents an uploaded medical document in the database.
type DocumentRecord struct {
	ID           string // UUID assigned by the storage layer at upload time
	OwnerID      string // Owning user; all access is scoped by this
	SourceURI    string // Where the raw bytes live
	MIMEType     string
	Status       DocumentStatus
	FailureStage string // "load", "chunk" or "embed" when Status is FAILED
	ContentHash  string // SHA256 hex of the raw content
	CreatedAt    time.Time
}

// ChunkRecord represents one bounded span of a document's normalized text.
// Chunks are immutable once created.
type ChunkRecord struct {
	ID          string // UUID (same as the vector point ID)
	DocumentID  string
	OwnerID     string
	ChunkIndex  int // Sequence within the document, starts at 0
	Text        string
	StartOffset int // Rune offset into the normalized text
	EndOffset   int
	Page        int // 1-based source page, 0 when the source has no pages
}
