package loader

import (
	"context"
	"errors"
	"testing"
)

// fakeOCR returns a preset recognition result.
type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) Recognize(context.Context, []byte) (string, error) {
	return f.text, f.err
}

func TestImageLoader(t *testing.T) {
	l := NewImageLoader(&fakeOCR{text: "Scanned prescription:\r\n5mg daily"})
	doc, err := l.Load(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "Scanned prescription:\n5mg daily" {
		t.Errorf("text = %q", doc.Text)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Page != 1 {
		t.Errorf("pages = %+v, want single page 1", doc.Pages)
	}
}

func TestImageLoader_Failures(t *testing.T) {
	ctx := context.Background()

	l := NewImageLoader(&fakeOCR{err: errors.New("tesseract crashed")})
	if _, err := l.Load(ctx, []byte("png-bytes")); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Load() with OCR failure error = %v, want ErrExtractionFailed", err)
	}

	l = NewImageLoader(&fakeOCR{text: "   "})
	if _, err := l.Load(ctx, []byte("png-bytes")); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Load() with blank OCR output error = %v, want ErrExtractionFailed", err)
	}

	l = NewImageLoader(nil)
	if _, err := l.Load(ctx, []byte("png-bytes")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() without OCR engine error = %v, want ErrUnsupportedFormat", err)
	}
}
