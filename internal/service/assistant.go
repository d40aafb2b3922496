package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_service.go -package=mocks carevault/internal/service Service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"carevault/internal/contextutil"
	"carevault/internal/indexer"
	"carevault/internal/loader"
	"carevault/internal/rag"
	"carevault/internal/storage"
)

// Ingestion stage names persisted on failed documents.
const (
	StageLoad  = "load"
	StageChunk = "chunk"
	StageEmbed = "embed"
)

// IngestRequest describes a document to ingest. Data may carry the raw
// bytes directly; otherwise SourceURI is fetched. DocumentID is generated
// when empty.
type IngestRequest struct {
	OwnerID    string
	DocumentID string
	SourceURI  string
	MIMEType   string
	Data       []byte
	// Force re-ingests even when the content hash matches an already
	// indexed version of the document.
	Force bool
}

// DocumentIndexer writes and removes a document's index entries.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc *storage.DocumentRecord, chunks []indexer.Chunk) error
	RemoveDocument(ctx context.Context, docID string) error
}

// DocumentLoader extracts normalized text from raw document bytes.
type DocumentLoader interface {
	Load(ctx context.Context, data []byte, mimeType string) (*loader.NormalizedText, error)
}

// TextChunker splits normalized text into chunks.
type TextChunker interface {
	Chunk(text string) []indexer.Chunk
}

// Service is the application-facing API over documents and questions.
type Service interface {
	// Ingest registers and indexes a document, returning its final record.
	Ingest(ctx context.Context, req IngestRequest) (*storage.DocumentRecord, error)
	// Remove deletes a document and all its index entries. Removing an
	// absent document is a no-op.
	Remove(ctx context.Context, ownerID, documentID string) error
	// Reingest re-runs ingestion for a previously registered document.
	Reingest(ctx context.Context, ownerID, documentID string) (*storage.DocumentRecord, error)
	// Answer answers a question over the owner's indexed documents.
	Answer(ctx context.Context, req rag.QueryRequest) (*rag.Answer, error)
	// Document returns a document record, enforcing ownership.
	Document(ctx context.Context, ownerID, documentID string) (*storage.DocumentRecord, error)
	// ListDocuments returns all documents of an owner, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]*storage.DocumentRecord, error)
}

// Assistant orchestrates the ingestion pipeline and the question path.
type Assistant struct {
	docs    storage.DocumentStore
	loader  DocumentLoader
	chunker TextChunker
	indexer DocumentIndexer
	engine  rag.Engine
	fetcher SourceFetcher
}

// NewAssistant creates the assistant.
func NewAssistant(docs storage.DocumentStore, dl DocumentLoader, chunker TextChunker, idx DocumentIndexer, engine rag.Engine, fetcher SourceFetcher) *Assistant {
	return &Assistant{
		docs:    docs,
		loader:  dl,
		chunker: chunker,
		indexer: idx,
		engine:  engine,
		fetcher: fetcher,
	}
}

// Ingest runs the full write path: fetch, load, chunk, index. The document
// is registered as PENDING first and ends INDEXED or FAILED; on
// cancellation all traces of the attempt are removed so a later retry
// starts clean.
func (a *Assistant) Ingest(ctx context.Context, req IngestRequest) (*storage.DocumentRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateIngest(req); err != nil {
		return nil, err
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}

	data := req.Data
	if data == nil {
		fetched, err := a.fetcher.Fetch(ctx, req.SourceURI)
		if err != nil {
			return nil, err
		}
		data = fetched
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	// Unchanged content that is already searchable is not re-indexed.
	existing, err := a.docs.GetByID(ctx, req.DocumentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	if existing != nil {
		if existing.OwnerID != req.OwnerID {
			return nil, rag.ErrCrossOwnerAccess
		}
		if !req.Force && existing.Status == storage.StatusIndexed && existing.ContentHash == contentHash {
			logger.InfoContext(ctx, "document unchanged, skipping ingestion",
				"document_id", req.DocumentID)
			return existing, nil
		}
	}

	doc := &storage.DocumentRecord{
		ID:          req.DocumentID,
		OwnerID:     req.OwnerID,
		SourceURI:   req.SourceURI,
		MIMEType:    req.MIMEType,
		Status:      storage.StatusPending,
		ContentHash: contentHash,
	}
	if err := a.docs.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	if err := a.runPipeline(ctx, doc, data); err != nil {
		if ctx.Err() != nil {
			a.abandon(ctx, doc.ID)
			return nil, ctx.Err()
		}

		var stageErr *StageError
		stage := ""
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		if updateErr := a.docs.UpdateStatus(context.WithoutCancel(ctx), doc.ID, storage.StatusFailed, stage); updateErr != nil {
			logger.ErrorContext(ctx, "failed to mark document as failed",
				"document_id", doc.ID, "error", updateErr)
		}
		doc.Status = storage.StatusFailed
		doc.FailureStage = stage
		logger.WarnContext(ctx, "document ingestion failed",
			"document_id", doc.ID, "stage", stage, "error", err)
		return doc, err
	}

	if err := a.docs.UpdateStatus(ctx, doc.ID, storage.StatusIndexed, ""); err != nil {
		// The index entries are already live but the record never reached
		// INDEXED; take them back out so no chunk of a non-indexed document
		// stays searchable.
		if cleanupErr := a.indexer.RemoveDocument(context.WithoutCancel(ctx), doc.ID); cleanupErr != nil {
			logger.ErrorContext(ctx, "failed to remove index entries after status update failure",
				"document_id", doc.ID, "error", cleanupErr)
		}
		return nil, fmt.Errorf("failed to mark document as indexed: %w", err)
	}
	doc.Status = storage.StatusIndexed
	return doc, nil
}

// runPipeline loads, chunks, and indexes the document bytes, tagging
// failures with the stage they occurred in.
func (a *Assistant) runPipeline(ctx context.Context, doc *storage.DocumentRecord, data []byte) error {
	normalized, err := a.loader.Load(ctx, data, doc.MIMEType)
	if err != nil {
		return &StageError{Stage: StageLoad, Err: err}
	}
	if strings.TrimSpace(normalized.Text) == "" {
		return &StageError{Stage: StageLoad, Err: errors.New("document contains no text")}
	}

	chunks := a.chunker.Chunk(normalized.Text)
	if len(chunks) == 0 {
		return &StageError{Stage: StageChunk, Err: errors.New("chunking produced no chunks")}
	}
	for i := range chunks {
		chunks[i].Page = normalized.PageAt(chunks[i].Start)
	}

	if err := a.indexer.IndexDocument(ctx, doc, chunks); err != nil {
		return &StageError{Stage: StageEmbed, Err: err}
	}
	return nil
}

// abandon removes every trace of a cancelled ingestion attempt.
func (a *Assistant) abandon(ctx context.Context, docID string) {
	logger := contextutil.LoggerFromContext(ctx)
	cleanupCtx := context.WithoutCancel(ctx)
	if err := a.indexer.RemoveDocument(cleanupCtx, docID); err != nil {
		logger.ErrorContext(ctx, "failed to clean up cancelled ingestion",
			"document_id", docID, "error", err)
		return
	}
	if err := a.docs.Delete(cleanupCtx, docID); err != nil {
		logger.ErrorContext(ctx, "failed to remove cancelled document record",
			"document_id", docID, "error", err)
	}
}

// Remove deletes a document and its index entries. The index is cleared
// before the record so a failure never leaves searchable chunks of an
// unregistered document.
func (a *Assistant) Remove(ctx context.Context, ownerID, documentID string) error {
	if ownerID == "" || documentID == "" {
		return fmt.Errorf("%w: owner ID and document ID are required", ErrInvalidInput)
	}

	doc, err := a.docs.GetByID(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}
	if doc.OwnerID != ownerID {
		return rag.ErrCrossOwnerAccess
	}

	if err := a.indexer.RemoveDocument(ctx, documentID); err != nil {
		return err
	}
	if err := a.docs.Delete(ctx, documentID); err != nil {
		return err
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "document removed",
		"document_id", documentID, "owner_id", ownerID)
	return nil
}

// Reingest re-runs ingestion for a registered document from its source URI,
// bypassing the unchanged-content skip.
func (a *Assistant) Reingest(ctx context.Context, ownerID, documentID string) (*storage.DocumentRecord, error) {
	doc, err := a.Document(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.SourceURI == "" {
		return nil, fmt.Errorf("%w: document has no source URI to re-ingest from", ErrInvalidInput)
	}

	return a.Ingest(ctx, IngestRequest{
		OwnerID:    ownerID,
		DocumentID: documentID,
		SourceURI:  doc.SourceURI,
		MIMEType:   doc.MIMEType,
		Force:      true,
	})
}

// Answer answers a question over the owner's indexed documents.
func (a *Assistant) Answer(ctx context.Context, req rag.QueryRequest) (*rag.Answer, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	return a.engine.Answer(ctx, req)
}

// Document returns a document record, enforcing ownership.
func (a *Assistant) Document(ctx context.Context, ownerID, documentID string) (*storage.DocumentRecord, error) {
	if ownerID == "" || documentID == "" {
		return nil, fmt.Errorf("%w: owner ID and document ID are required", ErrInvalidInput)
	}
	doc, err := a.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, rag.ErrCrossOwnerAccess
	}
	return doc, nil
}

// ListDocuments returns all documents of an owner, newest first.
func (a *Assistant) ListDocuments(ctx context.Context, ownerID string) ([]*storage.DocumentRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", ErrInvalidInput)
	}
	return a.docs.ListByOwner(ctx, ownerID)
}

func validateIngest(req IngestRequest) error {
	if req.OwnerID == "" {
		return fmt.Errorf("%w: owner ID is required", ErrInvalidInput)
	}
	if req.MIMEType == "" {
		return fmt.Errorf("%w: MIME type is required", ErrInvalidInput)
	}
	if req.SourceURI == "" && req.Data == nil {
		return fmt.Errorf("%w: a source URI or document bytes are required", ErrInvalidInput)
	}
	return nil
}
