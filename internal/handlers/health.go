package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"carevault/internal/contextutil"
	"carevault/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore        vectorstore.VectorStore
	collectionName     string
	db                 interface{ PingContext(context.Context) error }
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(vectorStore vectorstore.VectorStore, collectionName string, db interface{ PingContext(context.Context) error }) *HealthHandler {
	return &HealthHandler{
		vectorStore:        vectorStore,
		collectionName:     collectionName,
		db:                 db,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP reports the health of the service and its dependencies.
// Returns 200 when healthy, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if h.checkVectorStore(checkCtx, logger) {
		checks["vector_store"] = "ok"
	} else {
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
	}

	if h.db != nil {
		if err := h.db.PingContext(checkCtx); err != nil {
			logger.WarnContext(ctx, "database health check failed", "error", err)
			checks["database"] = "error"
			issues = append(issues, "database_unavailable")
		} else {
			checks["database"] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkVectorStore checks if the vector store collection is reachable.
func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger) bool {
	exists, err := h.vectorStore.CollectionExists(ctx, h.collectionName)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "vector store collection does not exist", "collection", h.collectionName)
		return false
	}
	return true
}
