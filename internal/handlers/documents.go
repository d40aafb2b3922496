package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carevault/internal/contextutil"
	"carevault/internal/service"
	"carevault/internal/storage"
)

// DocumentsHandler handles HTTP requests for document lifecycle operations.
type DocumentsHandler struct {
	service service.Service
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(svc service.Service) *DocumentsHandler {
	return &DocumentsHandler{service: svc}
}

// CreateDocumentRequest represents the HTTP request payload for registering
// a document.
type CreateDocumentRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	SourceURI  string `json:"source_uri"`
	MIMEType   string `json:"mime_type"`
}

// DocumentResponse represents a document record in HTTP responses.
type DocumentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	FailureStage string `json:"failure_stage,omitempty"`
	SourceURI    string `json:"source_uri"`
	MIMEType     string `json:"mime_type"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func documentResponse(doc *storage.DocumentRecord) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID,
		Status:       string(doc.Status),
		FailureStage: doc.FailureStage,
		SourceURI:    doc.SourceURI,
		MIMEType:     doc.MIMEType,
	}
	if !doc.CreatedAt.IsZero() {
		resp.CreatedAt = doc.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Create registers a document and runs it through the ingestion pipeline.
// Responds 202 with the document's resulting state; a FAILED document stays
// registered and can be re-ingested.
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SourceURI == "" || req.MIMEType == "" {
		writeError(w, http.StatusBadRequest, "source_uri and mime_type are required")
		return
	}

	ingestReq := service.IngestRequest{
		OwnerID:    ownerID,
		DocumentID: req.DocumentID,
		SourceURI:  req.SourceURI,
		MIMEType:   req.MIMEType,
	}

	doc, err := h.service.Ingest(ctx, ingestReq)
	if err != nil && doc == nil {
		writeServiceError(w, ctx, err, "Failed to ingest document")
		return
	}
	// A doc that failed mid-pipeline is still registered; report its state.
	writeJSON(w, ctx, http.StatusAccepted, documentResponse(doc))
}

// Get returns the current state of a document.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}
	documentID := chi.URLParam(r, "documentID")

	doc, err := h.service.Document(ctx, ownerID, documentID)
	if err != nil {
		writeServiceError(w, ctx, err, "Failed to load document")
		return
	}
	writeJSON(w, ctx, http.StatusOK, documentResponse(doc))
}

// List returns all of the caller's documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}

	docs, err := h.service.ListDocuments(ctx, ownerID)
	if err != nil {
		writeServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentResponse(doc))
	}
	writeJSON(w, ctx, http.StatusOK, out)
}

// Delete removes a document and its index entries. Deleting an absent
// document succeeds.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}
	documentID := chi.URLParam(r, "documentID")

	if err := h.service.Remove(ctx, ownerID, documentID); err != nil {
		writeServiceError(w, ctx, err, "Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reingest re-runs ingestion for a document from its source URI.
func (h *DocumentsHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "Owner ID header is required")
		return
	}
	documentID := chi.URLParam(r, "documentID")

	doc, err := h.service.Reingest(ctx, ownerID, documentID)
	if err != nil && doc == nil {
		writeServiceError(w, ctx, err, "Failed to re-ingest document")
		return
	}
	writeJSON(w, ctx, http.StatusAccepted, documentResponse(doc))
}
