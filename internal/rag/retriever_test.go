package rag

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"carevault/internal/vectorstore"
)

// vecEmbedder returns a preset vector for any input.
type vecEmbedder struct {
	vec []float32
}

func (e *vecEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func randVec(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func seedStore(t *testing.T, store *vectorstore.MemoryStore, rng *rand.Rand, ownerID string, docs, chunksPerDoc, dim int) {
	t.Helper()
	var points []vectorstore.Point
	for d := 0; d < docs; d++ {
		docID := fmt.Sprintf("%s-doc-%d", ownerID, d)
		for c := 0; c < chunksPerDoc; c++ {
			points = append(points, vectorstore.Point{
				ID:  fmt.Sprintf("%s-chunk-%d", docID, c),
				Vec: randVec(rng, dim),
				Meta: map[string]any{
					"owner_id":    ownerID,
					"document_id": docID,
					"chunk_index": c,
					"page":        1,
				},
			})
		}
	}
	if err := store.Upsert(context.Background(), "test-collection", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestRetrieve_OwnerIsolation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, rng, "owner-1", 10, 5, 8)
	seedStore(t, store, rng, "owner-2", 10, 5, 8)

	embedder := &vecEmbedder{}
	r := NewRetriever(embedder, store, "test-collection", 5, 0)

	for i := 0; i < 1000; i++ {
		embedder.vec = randVec(rng, 8)
		chunks, err := r.Retrieve(context.Background(), "owner-1", "question", 0)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(chunks) == 0 {
			t.Fatal("Retrieve() returned nothing over a populated partition")
		}
		for _, c := range chunks {
			if len(c.DocumentID) < 7 || c.DocumentID[:7] != "owner-1" {
				t.Fatalf("query %d leaked chunk from document %s", i, c.DocumentID)
			}
		}
	}
}

func TestRetrieve_EmptyPartition(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	r := NewRetriever(&vecEmbedder{vec: []float32{1, 0}}, store, "test-collection", 5, 0)

	chunks, err := r.Retrieve(context.Background(), "owner-1", "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() on empty partition error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks from empty partition, want 0", len(chunks))
	}
}

func TestRetrieve_TopKAndOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, rng, "owner-1", 5, 4, 8)

	r := NewRetriever(&vecEmbedder{vec: randVec(rng, 8)}, store, "test-collection", 3, 0)
	chunks, err := r.Retrieve(context.Background(), "owner-1", "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Score > chunks[i-1].Score {
			t.Errorf("results not sorted by score: %f after %f", chunks[i].Score, chunks[i-1].Score)
		}
	}
}

func TestRetrieve_TopKOverride(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, rng, "owner-1", 5, 4, 8)

	r := NewRetriever(&vecEmbedder{vec: randVec(rng, 8)}, store, "test-collection", 3, 0)
	chunks, err := r.Retrieve(context.Background(), "owner-1", "question", 7)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 7 {
		t.Errorf("got %d chunks, want 7", len(chunks))
	}
}

func TestRetrieve_DocCap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	store := vectorstore.NewMemoryStore()
	// Two documents with many chunks each.
	seedStore(t, store, rng, "owner-1", 2, 10, 8)

	r := NewRetriever(&vecEmbedder{vec: randVec(rng, 8)}, store, "test-collection", 4, 2)
	chunks, err := r.Retrieve(context.Background(), "owner-1", "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	perDoc := make(map[string]int)
	for _, c := range chunks {
		perDoc[c.DocumentID]++
	}
	for docID, n := range perDoc {
		if n > 2 {
			t.Errorf("document %s contributed %d chunks, cap is 2", docID, n)
		}
	}
}
