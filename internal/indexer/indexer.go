package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carevault/internal/contextutil"
	"carevault/internal/llm"
	"carevault/internal/storage"
	"carevault/internal/vectorstore"
)

// ErrIndexCorruption indicates index state that cannot be repaired from
// stored data; the affected documents must be re-ingested from source.
var ErrIndexCorruption = errors.New("index corruption detected")

// Embedder turns text into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer writes chunk embeddings into the vector store and chunk rows into
// the relational store, all-or-nothing per document. Concurrent writes to
// the same document serialize on a per-document lock.
type Indexer struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	chunks     storage.ChunkStore
	docs       storage.DocumentStore
	collection string

	locks       *docLocks
	maxAttempts int
	backoffBase time.Duration
}

// New creates an indexer writing to the given collection.
func New(embedder Embedder, store vectorstore.VectorStore, chunks storage.ChunkStore, docs storage.DocumentStore, collection string) *Indexer {
	return &Indexer{
		embedder:    embedder,
		store:       store,
		chunks:      chunks,
		docs:        docs,
		collection:  collection,
		locks:       newDocLocks(),
		maxAttempts: 3,
		backoffBase: 200 * time.Millisecond,
	}
}

// IndexDocument embeds the chunks and commits them to both stores. On any
// failure, partial writes for the document are removed before returning so
// no chunk of the document is ever searchable alone.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *storage.DocumentRecord, chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", doc.ID)
	}

	release := idx.locks.lock(doc.ID)
	defer release()

	logger := contextutil.LoggerFromContext(ctx)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embed before touching either store; most failures happen here and
	// leave nothing to clean up.
	vectors, err := idx.embedWithRetry(ctx, texts)
	if err != nil {
		return err
	}

	// Replace any previous index entries for this document.
	if err := idx.removeLocked(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear previous index entries: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	records := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		points[i] = vectorstore.Point{
			ID:  id,
			Vec: vectors[i],
			Meta: map[string]any{
				"owner_id":    doc.OwnerID,
				"document_id": doc.ID,
				"chunk_index": c.Index,
				"page":        c.Page,
			},
		}
		records[i] = &storage.ChunkRecord{
			ID:          id,
			DocumentID:  doc.ID,
			OwnerID:     doc.OwnerID,
			ChunkIndex:  c.Index,
			Text:        c.Text,
			StartOffset: c.Start,
			EndOffset:   c.End,
			Page:        c.Page,
		}
	}

	if err := idx.commit(ctx, doc.ID, points, records); err != nil {
		if cleanupErr := idx.removeLocked(context.WithoutCancel(ctx), doc.ID); cleanupErr != nil {
			logger.ErrorContext(ctx, "failed to clean up partial index entries",
				"document_id", doc.ID, "error", cleanupErr)
		}
		return err
	}

	logger.InfoContext(ctx, "document indexed",
		"document_id", doc.ID, "owner_id", doc.OwnerID, "chunks", len(chunks))
	return nil
}

// commit stages chunk rows and vector points. Checked for cancellation
// between steps so an abandoned request does not half-commit.
func (idx *Indexer) commit(ctx context.Context, docID string, points []vectorstore.Point, records []*storage.ChunkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range records {
		if err := idx.chunks.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to store chunk %d of document %s: %w", rec.ChunkIndex, docID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := idx.store.Upsert(ctx, idx.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors for document %s: %w", docID, err)
	}
	return nil
}

// embedWithRetry calls the embedder with bounded backoff. A failure after
// the final attempt is reported as the embedding backend being unavailable.
func (idx *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= idx.maxAttempts; attempt++ {
		vectors, err := idx.embedder.EmbedTexts(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == idx.maxAttempts {
			break
		}

		delay := idx.backoffBase * time.Duration(1<<(attempt-1))
		logger.WarnContext(ctx, "embedding attempt failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if errors.Is(lastErr, llm.ErrEmbeddingUnavailable) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", llm.ErrEmbeddingUnavailable, lastErr)
}

// RemoveDocument deletes every index entry for the document from both
// stores. Removing a document that was never indexed is a no-op.
func (idx *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	release := idx.locks.lock(docID)
	defer release()
	return idx.removeLocked(ctx, docID)
}

func (idx *Indexer) removeLocked(ctx context.Context, docID string) error {
	ids, err := idx.chunks.ListIDsByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to list chunks of document %s: %w", docID, err)
	}
	if len(ids) > 0 {
		if err := idx.store.Delete(ctx, idx.collection, ids); err != nil {
			return fmt.Errorf("failed to delete vectors of document %s: %w", docID, err)
		}
	}
	// Filter delete catches points whose chunk rows were lost.
	if err := idx.store.DeleteByFilter(ctx, idx.collection, map[string]any{"document_id": docID}); err != nil {
		return fmt.Errorf("failed to delete stray vectors of document %s: %w", docID, err)
	}
	if err := idx.chunks.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete chunk rows of document %s: %w", docID, err)
	}
	return nil
}

// RebuildIndex re-derives chunk vectors for every indexed document of an
// owner from the stored chunk text, useful after a vector store loss.
// An indexed document whose chunk rows are gone cannot be rebuilt; that is
// reported as ErrIndexCorruption and the document must be re-ingested.
func (idx *Indexer) RebuildIndex(ctx context.Context, ownerID string) error {
	docs, err := idx.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list documents for owner: %w", err)
	}

	for _, doc := range docs {
		if doc.Status != storage.StatusIndexed {
			continue
		}
		records, err := idx.chunks.ListByDocument(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to load chunks of document %s: %w", doc.ID, err)
		}
		if len(records) == 0 {
			return fmt.Errorf("%w: document %s is indexed but has no stored chunks", ErrIndexCorruption, doc.ID)
		}
		chunks := make([]Chunk, len(records))
		for i, rec := range records {
			chunks[i] = Chunk{
				Index: rec.ChunkIndex,
				Text:  rec.Text,
				Start: rec.StartOffset,
				End:   rec.EndOffset,
				Page:  rec.Page,
			}
		}
		if err := idx.IndexDocument(ctx, doc, chunks); err != nil {
			return fmt.Errorf("failed to rebuild document %s: %w", doc.ID, err)
		}
	}
	return nil
}
