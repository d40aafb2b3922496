package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks carevault/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk into the database.
	// The chunk.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// ListByDocument returns all chunks for a document, ordered by chunk_index.
	ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// DB exposes the underlying database handle for aggregate queries.
func (r *ChunkRepo) DB() *sql.DB {
	return r.db
}

// Insert inserts a single chunk into the database.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunks (id, document_id, owner_id, chunk_index, text, start_offset, end_offset, page)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.OwnerID, chunk.ChunkIndex, chunk.Text, chunk.StartOffset, chunk.EndOffset, chunk.Page,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByDocument deletes all chunks for a given document ID.
// Removing chunks of an absent document is a no-op.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// ListByDocument returns all chunks for a document, ordered by chunk_index.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, owner_id, chunk_index, text, start_offset, end_offset, page
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.ChunkIndex, &c.Text, &c.StartOffset, &c.EndOffset, &c.Page); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var c ChunkRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, owner_id, chunk_index, text, start_offset, end_offset, page
		 FROM chunks WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.ChunkIndex, &c.Text, &c.StartOffset, &c.EndOffset, &c.Page)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	return &c, nil
}
