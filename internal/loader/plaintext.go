package loader

import (
	"context"
	"fmt"
)

// PlainTextLoader handles plain text documents. Normalization is the only
// work: line endings, control characters, surrounding whitespace.
type PlainTextLoader struct{}

// NewPlainTextLoader creates a new plain text loader.
func NewPlainTextLoader() *PlainTextLoader {
	return &PlainTextLoader{}
}

// MIMETypes returns the MIME types this loader handles.
func (l *PlainTextLoader) MIMETypes() []string {
	return []string{"text/plain", "text/csv"}
}

// Load normalizes the raw bytes as a single-page text document.
func (l *PlainTextLoader) Load(_ context.Context, data []byte) (*NormalizedText, error) {
	text := normalizeText(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: document contains no text", ErrExtractionFailed)
	}
	return &NormalizedText{
		Text:  text,
		Pages: []PageSpan{{Page: 1, Start: 0, End: len([]rune(text))}},
	}, nil
}
