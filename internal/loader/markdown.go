package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader handles markdown documents, as exported by patient portals
// for visit summaries and discharge notes. The AST is flattened to plain
// text so markup never leaks into chunks or the generation context.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

// NewMarkdownLoader creates a new markdown loader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// MIMETypes returns the MIME types this loader handles.
func (l *MarkdownLoader) MIMETypes() []string {
	return []string{"text/markdown"}
}

// Load parses the markdown AST and flattens it to a single-page text document.
func (l *MarkdownLoader) Load(_ context.Context, data []byte) (*NormalizedText, error) {
	reader := text.NewReader(data)
	doc := l.parser.Parser().Parse(reader)

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock:
			writeBlockLines(&b, n, data)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			writeBlockLines(&b, n, data)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	flattened := normalizeText(b.String())
	if flattened == "" {
		return nil, fmt.Errorf("%w: document contains no text", ErrExtractionFailed)
	}
	return &NormalizedText{
		Text:  flattened,
		Pages: []PageSpan{{Page: 1, Start: 0, End: len([]rune(flattened))}},
	}, nil
}

// writeBlockLines appends the raw source lines of a block node.
func writeBlockLines(b *strings.Builder, n ast.Node, data []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(data))
	}
	b.WriteByte('\n')
}
