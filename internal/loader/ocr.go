package loader

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine implements OCREngine with a local tesseract installation.
type TesseractEngine struct {
	// Language is the tesseract language code, e.g. "eng".
	Language string
}

// NewTesseractEngine creates a tesseract-backed OCR engine.
func NewTesseractEngine(language string) *TesseractEngine {
	return &TesseractEngine{Language: language}
}

// Recognize runs tesseract over the encoded image and returns the raw text.
// A fresh client per call; gosseract clients are not safe for concurrent use.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer func() {
		_ = client.Close()
	}()

	if e.Language != "" {
		if err := client.SetLanguage(e.Language); err != nil {
			return "", fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set OCR image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}
