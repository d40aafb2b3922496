package handlers

import (
	"errors"
	"net/http"

	"carevault/internal/contextutil"
	"carevault/internal/indexer"
)

// RebuildHandler re-derives an owner's vector partition from stored chunk
// text, the recovery path after a vector store loss.
type RebuildHandler struct {
	indexer *indexer.Indexer
}

// NewRebuildHandler creates a new RebuildHandler.
func NewRebuildHandler(idx *indexer.Indexer) *RebuildHandler {
	return &RebuildHandler{indexer: idx}
}

// ServeHTTP rebuilds the caller's index partition.
func (h *RebuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}

	if err := h.indexer.RebuildIndex(ctx, ownerID); err != nil {
		if errors.Is(err, indexer.ErrIndexCorruption) {
			logger.ErrorContext(ctx, "index rebuild found unrecoverable state",
				"owner_id", ownerID, "error", err)
			writeError(w, http.StatusConflict, "Index state unrecoverable; re-ingest the affected documents")
			return
		}
		writeServiceError(w, ctx, err, "Failed to rebuild index")
		return
	}

	writeJSON(w, ctx, http.StatusOK, map[string]string{"status": "rebuilt"})
}
