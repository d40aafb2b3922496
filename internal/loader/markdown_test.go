package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMarkdownLoader(t *testing.T) {
	l := NewMarkdownLoader()
	ctx := context.Background()

	src := "# Visit Summary\n\nPatient is **recovering well**.\n\n- rest\n- fluids\n\n```\ndosage: 5mg\n```\n"
	doc, err := l.Load(ctx, []byte(src))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, want := range []string{"Visit Summary", "recovering well", "rest", "fluids", "dosage: 5mg"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("flattened text missing %q: %q", want, doc.Text)
		}
	}
	for _, markup := range []string{"#", "**", "- ", "```"} {
		if strings.Contains(doc.Text, markup) {
			t.Errorf("markup %q leaked into flattened text: %q", markup, doc.Text)
		}
	}
	if len(doc.Pages) != 1 {
		t.Errorf("got %d page spans, want 1", len(doc.Pages))
	}
}

func TestMarkdownLoader_Empty(t *testing.T) {
	l := NewMarkdownLoader()
	if _, err := l.Load(context.Background(), []byte("")); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Load() of empty input error = %v, want ErrExtractionFailed", err)
	}
}
