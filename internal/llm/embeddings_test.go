package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingsServer(t *testing.T, dim int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		resp := EmbeddingsResponse{Data: make([]EmbeddingData, len(req.Input))}
		for i := range req.Input {
			vec := make([]float64, dim)
			for j := range vec {
				vec[j] = float64(i + j)
			}
			resp.Data[i] = EmbeddingData{Embedding: vec}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedTexts(t *testing.T) {
	server := embeddingsServer(t, 4, http.StatusOK)
	defer server.Close()

	c := NewEmbeddingsClient(server.URL, "key", "model", 4)
	vectors, err := c.EmbedTexts(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 4 {
			t.Errorf("vector %d has size %d, want 4", i, len(v))
		}
	}
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	c := NewEmbeddingsClient("http://unused", "key", "model", 4)
	if _, err := c.EmbedTexts(context.Background(), nil); err == nil {
		t.Error("EmbedTexts() with no input should fail")
	}
}

func TestEmbedTexts_ServerErrorIsUnavailable(t *testing.T) {
	server := embeddingsServer(t, 4, http.StatusInternalServerError)
	defer server.Close()

	c := NewEmbeddingsClient(server.URL, "key", "model", 4)
	_, err := c.EmbedTexts(context.Background(), []string{"one"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("EmbedTexts() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbedTexts_TransportErrorIsUnavailable(t *testing.T) {
	c := NewEmbeddingsClient("http://127.0.0.1:1", "key", "model", 4)
	_, err := c.EmbedTexts(context.Background(), []string{"one"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("EmbedTexts() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbedTexts_SizeMismatchIsNotRetryable(t *testing.T) {
	server := embeddingsServer(t, 4, http.StatusOK)
	defer server.Close()

	// Client pinned to a different size than the server returns.
	c := NewEmbeddingsClient(server.URL, "key", "model", 8)
	_, err := c.EmbedTexts(context.Background(), []string{"one"})
	if err == nil {
		t.Fatal("EmbedTexts() with size mismatch should fail")
	}
	if errors.Is(err, ErrEmbeddingUnavailable) {
		t.Error("size mismatch is a configuration error, not an availability error")
	}
}
