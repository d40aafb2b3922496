package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"carevault/internal/storage"
)

const (
	// ChunkerVersion is the version identifier for the chunker implementation.
	// Update this when chunking logic changes significantly.
	ChunkerVersion = "v1.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexCoverageStats describes the index state for one owner.
type IndexCoverageStats struct {
	// DocsTotal is the number of documents the owner has registered.
	DocsTotal int `json:"docs_total"`
	// DocsIndexed is the number of documents whose chunks are searchable.
	DocsIndexed int `json:"docs_indexed"`
	// DocsPending is the number of documents still being ingested.
	DocsPending int `json:"docs_pending"`
	// DocsFailed is the number of documents whose ingestion failed.
	DocsFailed int `json:"docs_failed"`
	// ChunksStored is the number of chunk rows held for the owner.
	ChunksStored int `json:"chunks_stored"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// GetIndexCoverageStats computes per-owner index coverage from the database.
func (idx *Indexer) GetIndexCoverageStats(ctx context.Context, ownerID, embeddingModelName string, maxChunkSize, chunkOverlap int) (*IndexCoverageStats, error) {
	docRepo, ok := idx.docs.(*storage.DocumentRepo)
	if !ok {
		return nil, fmt.Errorf("document store is not *storage.DocumentRepo, cannot query stats")
	}
	chunkRepo, ok := idx.chunks.(*storage.ChunkRepo)
	if !ok {
		return nil, fmt.Errorf("chunk store is not *storage.ChunkRepo, cannot query stats")
	}

	db := docRepo.DB()
	if db == nil {
		return nil, fmt.Errorf("document repo has no database handle")
	}

	stats := &IndexCoverageStats{ChunkerVersion: ChunkerVersion}

	rows, err := db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM documents WHERE owner_id = ? GROUP BY status", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		stats.DocsTotal += count
		switch storage.DocumentStatus(status) {
		case storage.StatusIndexed:
			stats.DocsIndexed = count
		case storage.StatusPending:
			stats.DocsPending = count
		case storage.StatusFailed:
			stats.DocsFailed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	tokenCounts, err := ownerChunkTokenCounts(ctx, chunkRepo, ownerID)
	if err != nil {
		return nil, err
	}
	stats.ChunksStored = len(tokenCounts)
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	// Hash identifying the index build; changes force a rebuild downstream.
	indexVersionInput := fmt.Sprintf("%s|%s|maxChunkSize=%d|overlap=%d",
		ChunkerVersion, embeddingModelName, maxChunkSize, chunkOverlap)
	hash := sha256.Sum256([]byte(indexVersionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// ownerChunkTokenCounts estimates a token count for every chunk of the owner.
func ownerChunkTokenCounts(ctx context.Context, chunkRepo *storage.ChunkRepo, ownerID string) ([]int, error) {
	db := chunkRepo.DB()
	if db == nil {
		return nil, fmt.Errorf("chunk repo has no database handle")
	}

	rows, err := db.QueryContext(ctx, "SELECT text FROM chunks WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []int
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk text: %w", err)
		}
		runeCount := utf8.RuneCountInString(text)
		tokenCount := int(math.Round(float64(runeCount) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		counts = append(counts, tokenCount)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	min := sorted[0]
	max := sorted[len(sorted)-1]

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}
	p95 := sorted[p95Index]

	return ChunkTokenStats{
		Min:  min,
		Max:  max,
		Mean: math.Round(mean*100) / 100,
		P95:  p95,
	}
}
