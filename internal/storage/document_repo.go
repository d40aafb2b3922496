package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks carevault/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Upsert inserts or replaces a document record.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// UpdateStatus sets the ingestion status and failure stage of a document.
	UpdateStatus(ctx context.Context, id string, status DocumentStatus, failureStage string) error
	// ListByOwner returns all documents belonging to an owner.
	ListByOwner(ctx context.Context, ownerID string) ([]*DocumentRecord, error)
	// Delete removes a document record. Deleting an absent document is a no-op.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// DB exposes the underlying database handle for aggregate queries.
func (r *DocumentRepo) DB() *sql.DB {
	return r.db
}

// Upsert inserts or replaces a document record.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, source_uri, mime_type, status, failure_stage, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_uri = excluded.source_uri,
			mime_type = excluded.mime_type,
			status = excluded.status,
			failure_stage = excluded.failure_stage,
			content_hash = excluded.content_hash`,
		doc.ID, doc.OwnerID, doc.SourceURI, doc.MIMEType, string(doc.Status), doc.FailureStage, doc.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, source_uri, mime_type, status, failure_stage, content_hash, created_at
		 FROM documents WHERE id = ?`,
		id,
	).Scan(&doc.ID, &doc.OwnerID, &doc.SourceURI, &doc.MIMEType, &status, &doc.FailureStage, &doc.ContentHash, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	doc.Status = DocumentStatus(status)

	return &doc, nil
}

// UpdateStatus sets the ingestion status and failure stage of a document.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id string, status DocumentStatus, failureStage string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, failure_stage = ? WHERE id = ?",
		string(status), failureStage, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns all documents belonging to an owner, newest first.
func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID string) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, source_uri, mime_type, status, failure_stage, content_hash, created_at
		 FROM documents WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		var status string
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.SourceURI, &doc.MIMEType, &status, &doc.FailureStage, &doc.ContentHash, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Status = DocumentStatus(status)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document record. Deleting an absent document is a no-op.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
