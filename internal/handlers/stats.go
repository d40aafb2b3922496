package handlers

import (
	"net/http"

	"carevault/internal/indexer"
)

// StatsHandler reports per-owner index coverage.
type StatsHandler struct {
	indexer            *indexer.Indexer
	embeddingModelName string
	maxChunkSize       int
	chunkOverlap       int
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(idx *indexer.Indexer, embeddingModelName string, maxChunkSize, chunkOverlap int) *StatsHandler {
	return &StatsHandler{
		indexer:            idx,
		embeddingModelName: embeddingModelName,
		maxChunkSize:       maxChunkSize,
		chunkOverlap:       chunkOverlap,
	}
}

// ServeHTTP returns index coverage statistics for the caller.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}

	stats, err := h.indexer.GetIndexCoverageStats(ctx, ownerID, h.embeddingModelName, h.maxChunkSize, h.chunkOverlap)
	if err != nil {
		writeServiceError(w, ctx, err, "Failed to compute index stats")
		return
	}
	writeJSON(w, ctx, http.StatusOK, stats)
}
