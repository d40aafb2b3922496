package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NoContextMarker is the sentinel context string the assembler produces when
// retrieval returned nothing relevant. The system prompt instructs the model
// to decline instead of guessing when it sees this marker.
const NoContextMarker = "[no relevant context]"

const systemPrompt = "You are a medical records assistant. Answer the user's question " +
	"using only the information in the provided document excerpts. Reference the " +
	"documents you used. If the excerpts do not contain enough information, or the " +
	"context is \"" + NoContextMarker + "\", say that you could not find the answer " +
	"in the user's documents and suggest rephrasing or uploading the relevant record. " +
	"Never invent medical facts."

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
	// retryDelay between the two generation attempts; shortened in tests.
	retryDelay time.Duration
}

// NewClient creates a new generation client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		client:     &http.Client{Timeout: 120 * time.Second},
		retryDelay: time.Second,
	}
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Generate produces an answer to the question grounded in the assembled
// context. Transport errors and 5xx responses get a single retry; a second
// failure is surfaced as ErrGenerationUnavailable so callers can tell the
// user to try again rather than returning a degraded answer.
func (c *Client) Generate(ctx context.Context, contextText, question string) (string, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n\n--- Document excerpts ---\n%s\n--- End excerpts ---", question, contextText)},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		answer, retryable, err := c.chat(ctx, messages)
		if err == nil {
			return answer, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, lastErr)
}

// chat performs one chat completion call. The second return value reports
// whether the failure is worth retrying.
func (c *Client) chat(ctx context.Context, messages []Message) (string, bool, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	payload := ChatRequest{
		Model:    c.Model,
		Messages: messages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
		return "", resp.StatusCode >= 500, err
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", false, fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, false, nil
}
