package indexer

import (
	"context"
	"testing"

	"carevault/internal/storage"
	"carevault/internal/vectorstore"
)

func TestGetIndexCoverageStats(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	idx, docRepo, _ := newTestIndexer(t, &fakeEmbedder{dim: 4}, store)
	ctx := context.Background()

	// Empty database.
	stats, err := idx.GetIndexCoverageStats(ctx, "owner-1", "test-model", 1000, 100)
	if err != nil {
		t.Fatalf("GetIndexCoverageStats() error = %v", err)
	}
	if stats.DocsTotal != 0 || stats.ChunksStored != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
	if stats.ChunkerVersion != ChunkerVersion {
		t.Errorf("ChunkerVersion = %s, want %s", stats.ChunkerVersion, ChunkerVersion)
	}
	if stats.IndexVersion == "" {
		t.Error("IndexVersion should not be empty")
	}

	// One indexed document with chunks, one failed, one for another owner.
	doc := testDocument(t, docRepo, "doc-1", "owner-1")
	if err := idx.IndexDocument(ctx, doc, testChunks(3)); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := docRepo.UpdateStatus(ctx, "doc-1", storage.StatusIndexed, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	failed := testDocument(t, docRepo, "doc-2", "owner-1")
	if err := docRepo.UpdateStatus(ctx, failed.ID, storage.StatusFailed, "load"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	testDocument(t, docRepo, "doc-3", "owner-2")

	stats, err = idx.GetIndexCoverageStats(ctx, "owner-1", "test-model", 1000, 100)
	if err != nil {
		t.Fatalf("GetIndexCoverageStats() error = %v", err)
	}
	if stats.DocsTotal != 2 {
		t.Errorf("DocsTotal = %d, want 2", stats.DocsTotal)
	}
	if stats.DocsIndexed != 1 {
		t.Errorf("DocsIndexed = %d, want 1", stats.DocsIndexed)
	}
	if stats.DocsFailed != 1 {
		t.Errorf("DocsFailed = %d, want 1", stats.DocsFailed)
	}
	if stats.ChunksStored != 3 {
		t.Errorf("ChunksStored = %d, want 3", stats.ChunksStored)
	}
	if stats.ChunkTokenStats.Min < 1 {
		t.Errorf("ChunkTokenStats.Min = %d, want >= 1", stats.ChunkTokenStats.Min)
	}
	if stats.ChunkTokenStats.Max < stats.ChunkTokenStats.Min {
		t.Errorf("Max %d < Min %d", stats.ChunkTokenStats.Max, stats.ChunkTokenStats.Min)
	}
}

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name        string
		tokenCounts []int
		want        ChunkTokenStats
	}{
		{
			name:        "empty",
			tokenCounts: []int{},
			want:        ChunkTokenStats{},
		},
		{
			name:        "single value",
			tokenCounts: []int{10},
			want:        ChunkTokenStats{Min: 10, Max: 10, Mean: 10.0, P95: 10},
		},
		{
			name:        "multiple values",
			tokenCounts: []int{5, 10, 15, 20, 25},
			want:        ChunkTokenStats{Min: 5, Max: 25, Mean: 15.0, P95: 25},
		},
		{
			name:        "unsorted values",
			tokenCounts: []int{30, 5, 20, 10, 15},
			want:        ChunkTokenStats{Min: 5, Max: 30, Mean: 16.0, P95: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTokenStats(tt.tokenCounts)
			if got != tt.want {
				t.Errorf("computeTokenStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
