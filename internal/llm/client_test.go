package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatServer(t *testing.T, answer string, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		n := atomic.AddInt32(&calls, 1)
		if n <= failFirst {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: answer}}},
		})
	}))
	return server, &calls
}

func newTestClient(url string) *Client {
	c := NewClient(url, "key", "model")
	c.retryDelay = time.Millisecond
	return c
}

func TestGenerate(t *testing.T) {
	server, _ := chatServer(t, "Your last HbA1c was 5.6%.", 0)
	defer server.Close()

	answer, err := newTestClient(server.URL).Generate(context.Background(), "context", "what was my HbA1c?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Your last HbA1c was 5.6%." {
		t.Errorf("answer = %q", answer)
	}
}

func TestGenerate_RetriesOnServerError(t *testing.T) {
	server, calls := chatServer(t, "recovered", 1)
	defer server.Close()

	answer, err := newTestClient(server.URL).Generate(context.Background(), "context", "question")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if *calls != 2 {
		t.Errorf("server called %d times, want 2", *calls)
	}
}

func TestGenerate_ExhaustedIsUnavailable(t *testing.T) {
	server, calls := chatServer(t, "", 100)
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "context", "question")
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrGenerationUnavailable", err)
	}
	if *calls != 2 {
		t.Errorf("server called %d times, want 2", *calls)
	}
}

func TestGenerate_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "context", "question")
	if err == nil {
		t.Fatal("Generate() should fail on 400")
	}
	if errors.Is(err, ErrGenerationUnavailable) {
		t.Error("client errors are not availability errors")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry)", calls)
	}
}

func TestGenerate_SendsContextAndQuestion(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "THE CONTEXT", "THE QUESTION")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system + user", got.Messages)
	}
	user := got.Messages[1].Content
	if !strings.Contains(user, "THE CONTEXT") || !strings.Contains(user, "THE QUESTION") {
		t.Errorf("user message missing context or question: %q", user)
	}
}
