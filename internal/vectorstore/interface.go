package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks carevault/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
// Every point carries "owner_id" and "document_id" metadata so searches and
// deletions can be restricted to one owner's partition.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search restricted to points whose metadata
	// matches all the given filters.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes all points whose metadata matches all the given filters.
	DeleteByFilter(ctx context.Context, collection string, filters map[string]any) error

	// CollectionExists reports whether the collection is available.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
