package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine similarity.
// It backs tests and single-node deployments that run without Qdrant
// (VECTOR_BACKEND=memory). Filter semantics match the Qdrant implementation:
// all filters must match a point's metadata.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Point
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Point)}
}

// Upsert inserts or updates points in the collection.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	byID := make(map[string]int, len(existing))
	for i, p := range existing {
		byID[p.ID] = i
	}
	for _, p := range points {
		if i, ok := byID[p.ID]; ok {
			existing[i] = p
		} else {
			byID[p.ID] = len(existing)
			existing = append(existing, p)
		}
	}
	s.collections[collection] = existing
	return nil
}

// Search performs a filtered brute-force cosine similarity scan.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, p := range s.collections[collection] {
		if !matchesFilters(p.Meta, filters) {
			continue
		}
		score, err := cosineSimilarity(query, p.Vec)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{PointID: p.ID, Score: score, Meta: p.Meta})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.collections[collection][:0]
	for _, p := range s.collections[collection] {
		if _, gone := drop[p.ID]; !gone {
			kept = append(kept, p)
		}
	}
	s.collections[collection] = kept
	return nil
}

// DeleteByFilter removes all points whose metadata matches all the given filters.
func (s *MemoryStore) DeleteByFilter(_ context.Context, collection string, filters map[string]any) error {
	if len(filters) == 0 {
		return fmt.Errorf("refusing to delete with empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.collections[collection][:0]
	for _, p := range s.collections[collection] {
		if !matchesFilters(p.Meta, filters) {
			kept = append(kept, p)
		}
	}
	s.collections[collection] = kept
	return nil
}

// CollectionExists always reports true; collections are created lazily.
func (s *MemoryStore) CollectionExists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// Count returns the number of points in a collection that match the filters.
// Test helper and stats support; not part of the VectorStore interface.
func (s *MemoryStore) Count(collection string, filters map[string]any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.collections[collection] {
		if matchesFilters(p.Meta, filters) {
			n++
		}
	}
	return n
}

func matchesFilters(meta, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := meta[key]
		if !ok || !metaEqual(got, want) {
			return false
		}
	}
	return true
}

// metaEqual compares metadata values, normalizing integer widths so that an
// int filter matches an int64 stored value and vice versa.
func metaEqual(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		bi, ok := asInt64(b)
		return ok && ai == bi
	}
	return a == b
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Vectors are not assumed to be normalized.
func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(na2) * math.Sqrt(nb2))), nil
}
