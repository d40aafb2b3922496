package loader

import (
	"strings"
	"testing"
)

func TestIsSparse(t *testing.T) {
	dense := strings.Repeat("a", 200)
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"no pages", nil, true},
		{"empty pages", []string{"", ""}, true},
		{"dense pages", []string{dense, dense}, false},
		{"thin text layer", []string{"OCR me", ""}, true},
		{"mixed above threshold", []string{dense, dense, ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSparse(tt.pages); got != tt.want {
				t.Errorf("isSparse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreferOutput(t *testing.T) {
	clean := &NormalizedText{Text: "a legible report with words"}
	garbled := &NormalizedText{Text: "a b c d e f g h i j k l m n"}
	empty := &NormalizedText{}

	if got := preferOutput(nil, clean); got != clean {
		t.Error("nil text layer should yield the OCR output")
	}
	if got := preferOutput(clean, nil); got != clean {
		t.Error("nil OCR output should yield the text layer")
	}
	if got := preferOutput(empty, clean); got != clean {
		t.Error("empty text layer should yield the OCR output")
	}
	if got := preferOutput(garbled, clean); got != clean {
		t.Error("output with higher printable ratio should win")
	}
	if got := preferOutput(clean, clean); got != clean {
		t.Error("ties keep the text layer")
	}
}

func TestRequireText(t *testing.T) {
	if _, err := requireText(nil); err == nil {
		t.Error("requireText(nil) should fail")
	}
	if _, err := requireText(&NormalizedText{Text: "  \n"}); err == nil {
		t.Error("requireText of blank text should fail")
	}
	doc := &NormalizedText{Text: "content"}
	got, err := requireText(doc)
	if err != nil || got != doc {
		t.Errorf("requireText() = %v, %v", got, err)
	}
}
