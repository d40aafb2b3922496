package rag

import (
	"context"
	"fmt"
	"sort"

	"carevault/internal/contextutil"
	"carevault/internal/vectorstore"
)

// Embedder turns text into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever runs similarity search over one owner's index partition. The
// owner filter is injected on every search; there is no unfiltered path.
type Retriever struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	topK       int
	// docCap limits how many chunks a single document may contribute.
	// Zero means no cap.
	docCap int
}

// NewRetriever creates a retriever with the given default retrieval depth
// and per-document contribution cap.
func NewRetriever(embedder Embedder, store vectorstore.VectorStore, collection string, topK, docCap int) *Retriever {
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		topK:       topK,
		docCap:     docCap,
	}
}

// Retrieve embeds the question and returns the owner's closest chunks,
// highest score first. An empty partition yields an empty result, not an
// error.
func (r *Retriever) Retrieve(ctx context.Context, ownerID, question string, topK int) ([]RetrievedChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		topK = r.topK
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	// Over-fetch when a document cap applies so capped-out hits can be
	// replaced by the next best ones.
	fetch := topK
	if r.docCap > 0 {
		fetch = topK * 3
	}

	results, err := r.store.Search(ctx, r.collection, vectors[0], fetch,
		map[string]any{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(results))
	perDoc := make(map[string]int)
	for _, res := range results {
		docID, _ := res.Meta["document_id"].(string)
		if r.docCap > 0 && perDoc[docID] >= r.docCap {
			continue
		}
		perDoc[docID]++
		chunks = append(chunks, RetrievedChunk{
			ChunkID:    res.PointID,
			DocumentID: docID,
			Score:      res.Score,
			ChunkIndex: metaInt(res.Meta, "chunk_index"),
			Page:       metaInt(res.Meta, "page"),
		})
		if len(chunks) == topK {
			break
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })

	logger.DebugContext(ctx, "retrieved chunks",
		"owner_id", ownerID, "requested", topK, "returned", len(chunks))
	return chunks, nil
}

// metaInt reads an integer metadata value regardless of the width the
// backend round-tripped it as.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
