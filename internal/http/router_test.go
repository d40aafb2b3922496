package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"carevault/internal/handlers"
	"carevault/internal/rag"
	"carevault/internal/service/mocks"
	"carevault/internal/storage"
	vsmocks "carevault/internal/vectorstore/mocks"
)

func testRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	store := vsmocks.NewMockVectorStore(ctrl)
	store.EXPECT().CollectionExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	router := NewRouter(&Deps{
		Query:     handlers.NewQueryHandler(svc),
		Documents: handlers.NewDocumentsHandler(svc),
		Health:    handlers.NewHealthHandler(store, "carevault_chunks", nil),
		Logger:    slog.Default(),
	})
	return router, svc
}

func TestRouter_Query(t *testing.T) {
	router, svc := testRouter(t)
	svc.EXPECT().Answer(gomock.Any(), gomock.Any()).Return(&rag.Answer{Answer: "ok"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{"question":"q"}`))
	req.Header.Set(handlers.OwnerHeader, "owner-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_DocumentRoutes(t *testing.T) {
	router, svc := testRouter(t)
	svc.EXPECT().ListDocuments(gomock.Any(), "owner-1").Return(nil, nil)
	svc.EXPECT().Document(gomock.Any(), "owner-1", "doc-1").
		Return(&storage.DocumentRecord{ID: "doc-1", Status: storage.StatusIndexed}, nil)
	svc.EXPECT().Remove(gomock.Any(), "owner-1", "doc-1").Return(nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/documents", http.StatusOK},
		{http.MethodGet, "/api/documents/doc-1", http.StatusOK},
		{http.MethodDelete, "/api/documents/doc-1", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		req.Header.Set(handlers.OwnerHeader, "owner-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestRouter_Health(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_StatsOptional(t *testing.T) {
	// Stats is nil in testRouter; the route should not be registered.
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set(handlers.OwnerHeader, "owner-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 404 for an unregistered route", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
