package loader

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"carevault/internal/contextutil"
)

// minCharsPerPage is the text-layer density threshold below which a PDF is
// considered scanned (or badly encoded) and re-run through OCR.
const minCharsPerPage = 64

// PDFLoader handles PDF documents. The embedded text layer is extracted
// first; when it is empty or sparse the pages are rasterized and OCRed, and
// whichever output has the higher printable-character ratio wins. The OCR
// fallback is handled internally and never surfaced as an error as long as
// one of the two paths produced text.
type PDFLoader struct {
	ocr OCREngine
}

// NewPDFLoader creates a new PDF loader. ocr may be nil, which disables the
// OCR fallback for scanned PDFs.
func NewPDFLoader(ocr OCREngine) *PDFLoader {
	return &PDFLoader{ocr: ocr}
}

// MIMETypes returns the MIME types this loader handles.
func (l *PDFLoader) MIMETypes() []string {
	return []string{"application/pdf"}
}

// Load extracts normalized text with page provenance from a PDF.
func (l *PDFLoader) Load(ctx context.Context, data []byte) (*NormalizedText, error) {
	logger := contextutil.LoggerFromContext(ctx)

	textPages, textErr := extractTextLayer(data)
	var textDoc *NormalizedText
	if textErr == nil {
		textDoc = buildPages(textPages)
	}

	if textErr == nil && !isSparse(textPages) {
		return requireText(textDoc)
	}

	if l.ocr == nil {
		if textDoc != nil && textDoc.Text != "" {
			return textDoc, nil
		}
		if textErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, textErr)
		}
		return nil, fmt.Errorf("%w: PDF has no usable text layer and OCR is disabled", ErrExtractionFailed)
	}

	logger.DebugContext(ctx, "PDF text layer sparse, falling back to OCR")
	ocrPages, ocrErr := l.ocrPages(ctx, data)
	if ocrErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// OCR trouble is recoverable as long as the text layer gave us something.
		if textDoc != nil && textDoc.Text != "" {
			logger.WarnContext(ctx, "OCR fallback failed, keeping text layer", "error", ocrErr)
			return textDoc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, ocrErr)
	}
	ocrDoc := buildPages(ocrPages)

	return requireText(preferOutput(textDoc, ocrDoc))
}

// extractTextLayer returns the embedded text of each page, empty strings for
// pages without one.
func extractTextLayer(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			// A single malformed page does not fail the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// ocrPages rasterizes each page and runs it through the OCR engine.
func (l *PDFLoader) ocrPages(ctx context.Context, data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rasterization: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		txt, err := l.ocr.Recognize(ctx, buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("OCR failed on page %d: %w", i+1, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// isSparse reports whether the text layer falls below the per-page
// character-density threshold.
func isSparse(pageTexts []string) bool {
	if len(pageTexts) == 0 {
		return true
	}
	total := 0
	for _, p := range pageTexts {
		total += len(strings.TrimSpace(p))
	}
	return total/len(pageTexts) < minCharsPerPage
}

// preferOutput picks the extraction output with the higher
// printable-character ratio; ties keep the text layer.
func preferOutput(textDoc, ocrDoc *NormalizedText) *NormalizedText {
	if textDoc == nil || textDoc.Text == "" {
		return ocrDoc
	}
	if ocrDoc == nil || ocrDoc.Text == "" {
		return textDoc
	}
	if printableRatio(ocrDoc.Text) > printableRatio(textDoc.Text) {
		return ocrDoc
	}
	return textDoc
}

func requireText(doc *NormalizedText) (*NormalizedText, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: PDF contains no extractable text", ErrExtractionFailed)
	}
	return doc, nil
}
