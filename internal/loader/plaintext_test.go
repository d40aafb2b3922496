package loader

import (
	"context"
	"errors"
	"testing"
)

func TestPlainTextLoader(t *testing.T) {
	l := NewPlainTextLoader()
	ctx := context.Background()

	doc, err := l.Load(ctx, []byte("Blood pressure 120/80.\r\nNext visit in June.\r\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "Blood pressure 120/80.\nNext visit in June." {
		t.Errorf("text = %q", doc.Text)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Page != 1 {
		t.Errorf("pages = %+v, want single page 1", doc.Pages)
	}
	if doc.Pages[0].End != len([]rune(doc.Text)) {
		t.Errorf("page span end = %d, want %d", doc.Pages[0].End, len([]rune(doc.Text)))
	}

	if _, err := l.Load(ctx, []byte("   \n  ")); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Load() of blank input error = %v, want ErrExtractionFailed", err)
	}
}
