package loader

import (
	"context"
	"fmt"
)

// ImageLoader handles scanned documents uploaded as images. OCR is the only
// extraction path.
type ImageLoader struct {
	ocr OCREngine
}

// NewImageLoader creates a new image loader backed by the given OCR engine.
func NewImageLoader(ocr OCREngine) *ImageLoader {
	return &ImageLoader{ocr: ocr}
}

// MIMETypes returns the MIME types this loader handles.
func (l *ImageLoader) MIMETypes() []string {
	return []string{"image/png", "image/jpeg", "image/tiff", "image/bmp"}
}

// Load runs OCR over the image and normalizes the result as one page.
func (l *ImageLoader) Load(ctx context.Context, data []byte) (*NormalizedText, error) {
	if l.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured", ErrUnsupportedFormat)
	}

	raw, err := l.ocr.Recognize(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text := normalizeText(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: OCR recognized no text", ErrExtractionFailed)
	}
	return &NormalizedText{
		Text:  text,
		Pages: []PageSpan{{Page: 1, Start: 0, End: len([]rune(text))}},
	}, nil
}
