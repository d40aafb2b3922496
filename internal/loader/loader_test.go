package loader

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := NewRegistry(NewPlainTextLoader())
	_, err := r.Load(context.Background(), []byte("data"), "application/zip")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestRegistry_CanonicalMIMEDispatch(t *testing.T) {
	r := NewRegistry(NewPlainTextLoader())
	doc, err := r.Load(context.Background(), []byte("hello"), "Text/Plain; charset=utf-8")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "hello" {
		t.Errorf("text = %q, want %q", doc.Text, "hello")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"bare cr", "a\rb", "a\nb"},
		{"control chars stripped", "a\x00b\x07c", "abc"},
		{"tab kept", "a\tb", "a\tb"},
		{"surrounding whitespace trimmed", "  text  \n", "text"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.in); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildPages(t *testing.T) {
	doc := buildPages([]string{"page one", "", "page three"})

	if doc.Text != "page one\n\npage three" {
		t.Errorf("text = %q", doc.Text)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("got %d page spans, want 2", len(doc.Pages))
	}
	if doc.Pages[0].Page != 1 || doc.Pages[1].Page != 3 {
		t.Errorf("page numbers = %d, %d; want 1, 3", doc.Pages[0].Page, doc.Pages[1].Page)
	}
	if doc.Pages[0].Start != 0 || doc.Pages[0].End != 8 {
		t.Errorf("page 1 span = [%d,%d), want [0,8)", doc.Pages[0].Start, doc.Pages[0].End)
	}
	if doc.Pages[1].Start != 10 {
		t.Errorf("page 3 starts at %d, want 10", doc.Pages[1].Start)
	}
}

func TestPageAt(t *testing.T) {
	doc := buildPages([]string{"page one", "page two"})

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{7, 1},
		{8, 1},  // separator gap belongs to the preceding page
		{10, 2},
		{17, 2},
		{1000, 2}, // past the end: last page
		{-1, 0},
	}
	for _, tt := range tests {
		if got := doc.PageAt(tt.offset); got != tt.want {
			t.Errorf("PageAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestPrintableRatio(t *testing.T) {
	if got := printableRatio(""); got != 0 {
		t.Errorf("printableRatio(\"\") = %f, want 0", got)
	}
	if got := printableRatio("abcd"); got != 1 {
		t.Errorf("printableRatio(\"abcd\") = %f, want 1", got)
	}
	if got := printableRatio("ab  "); got != 0.5 {
		t.Errorf("printableRatio(\"ab  \") = %f, want 0.5", got)
	}
}
