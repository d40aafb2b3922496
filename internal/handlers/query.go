package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"carevault/internal/contextutil"
	"carevault/internal/llm"
	"carevault/internal/rag"
	"carevault/internal/service"
	"carevault/internal/storage"
)

// OwnerHeader carries the authenticated owner identity, set by the gateway
// in front of this service.
const OwnerHeader = "X-Owner-ID"

// maxTopK bounds user-provided retrieval depth.
const maxTopK = 20

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueryHandler handles HTTP requests for questions over indexed documents.
type QueryHandler struct {
	service service.Service
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc service.Service) *QueryHandler {
	return &QueryHandler{service: svc}
}

// QueryRequest represents the HTTP request payload for questions.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryResponse represents the HTTP response payload for questions.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Citations []rag.Citation `json:"citations"`
}

// ServeHTTP answers a question over the caller's documents.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if req.TopK < 0 {
		req.TopK = 0
	}
	if req.TopK > maxTopK {
		req.TopK = maxTopK
	}

	answer, err := h.service.Answer(ctx, rag.QueryRequest{
		OwnerID:  ownerID,
		Question: req.Question,
		TopK:     req.TopK,
	})
	if err != nil {
		writeServiceError(w, ctx, err, "Failed to answer question")
		return
	}

	citations := answer.Citations
	if citations == nil {
		citations = []rag.Citation{}
	}
	writeJSON(w, ctx, http.StatusOK, QueryResponse{Answer: answer.Answer, Citations: citations})
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrCrossOwnerAccess):
		logger.WarnContext(ctx, "cross-owner access rejected", "error", err)
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, llm.ErrEmbeddingUnavailable), errors.Is(err, llm.ErrGenerationUnavailable):
		logger.ErrorContext(ctx, "model backend unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Model backend unavailable")
	default:
		logger.ErrorContext(ctx, defaultMsg, "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, ctx context.Context, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
