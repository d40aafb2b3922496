package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnsupportedFormat is returned for MIME types outside the supported set.
	// Permanent; surfaced to the user at upload time.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractionFailed is returned when no usable text could be extracted.
	// Permanent unless a re-upload is provided.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// PageSpan maps a source page to a rune range of the normalized text.
type PageSpan struct {
	Page  int // 1-based
	Start int // inclusive rune offset
	End   int // exclusive rune offset
}

// NormalizedText is the output of a Loader: clean text plus enough
// provenance to cite a page for any offset.
type NormalizedText struct {
	Text  string
	Pages []PageSpan
}

// PageAt returns the 1-based page containing the given rune offset,
// or 0 when the offset falls outside all page spans.
func (n *NormalizedText) PageAt(offset int) int {
	for _, span := range n.Pages {
		if offset >= span.Start && offset < span.End {
			return span.Page
		}
	}
	// Offsets in the separator gap between pages belong to the preceding page.
	for i := len(n.Pages) - 1; i >= 0; i-- {
		if offset >= n.Pages[i].End {
			return n.Pages[i].Page
		}
	}
	return 0
}

// Loader extracts normalized text from one document format.
type Loader interface {
	// MIMETypes returns the MIME types this loader handles.
	MIMETypes() []string
	// Load extracts normalized text with provenance from raw bytes.
	Load(ctx context.Context, data []byte) (*NormalizedText, error)
}

// Registry dispatches loading to the Loader registered for a MIME type.
// The format set is closed: adding a format means registering a new Loader.
type Registry struct {
	byMIME map[string]Loader
}

// NewRegistry creates a registry over the given loaders.
func NewRegistry(loaders ...Loader) *Registry {
	byMIME := make(map[string]Loader)
	for _, l := range loaders {
		for _, mime := range l.MIMETypes() {
			byMIME[mime] = l
		}
	}
	return &Registry{byMIME: byMIME}
}

// NewDefaultRegistry creates a registry with all supported formats:
// PDF, images (OCR), plain text and markdown.
func NewDefaultRegistry(ocr OCREngine) *Registry {
	return NewRegistry(
		NewPDFLoader(ocr),
		NewImageLoader(ocr),
		NewPlainTextLoader(),
		NewMarkdownLoader(),
	)
}

// Load extracts normalized text from data using the loader registered for
// mimeType. Returns ErrUnsupportedFormat for unknown MIME types.
func (r *Registry) Load(ctx context.Context, data []byte, mimeType string) (*NormalizedText, error) {
	key := canonicalMIME(mimeType)
	l, ok := r.byMIME[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	return l.Load(ctx, data)
}

// canonicalMIME lowercases a MIME type and strips parameters
// ("text/plain; charset=utf-8" -> "text/plain").
func canonicalMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// normalizeText cleans extracted text: unifies line endings and drops
// control characters other than newline and tab.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// buildPages joins per-page texts into one NormalizedText, recording the
// rune span of each non-empty page. Pages are separated by a blank line.
func buildPages(pageTexts []string) *NormalizedText {
	const separator = "\n\n"
	var b strings.Builder
	var spans []PageSpan
	offset := 0

	for i, raw := range pageTexts {
		text := normalizeText(raw)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(separator)
			offset += len([]rune(separator))
		}
		n := len([]rune(text))
		spans = append(spans, PageSpan{Page: i + 1, Start: offset, End: offset + n})
		b.WriteString(text)
		offset += n
	}

	return &NormalizedText{Text: b.String(), Pages: spans}
}

// printableRatio reports the fraction of runes that are printable and
// non-space. Used to pick between text-layer and OCR output.
func printableRatio(s string) float64 {
	total := 0
	printable := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}
