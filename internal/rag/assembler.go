package rag

import (
	"fmt"
	"strings"

	"carevault/internal/llm"
)

const defaultSeparator = "\n\n---\n\n"

// Assembler packs retrieved chunks into a bounded prompt context. Chunks go
// in ranked order and are never split: a chunk that does not fit whole is
// skipped in favor of the next one. The citation list mirrors exactly the
// chunks that made it in.
type Assembler struct {
	budget    int
	separator string
}

// NewAssembler creates an assembler with the given context budget in runes.
func NewAssembler(budget int) *Assembler {
	return &Assembler{budget: budget, separator: defaultSeparator}
}

// Assemble builds the context block and citations from ranked chunks. With
// no usable chunks it returns the no-context marker and no citations, so
// the model is told explicitly that nothing relevant was found.
func (a *Assembler) Assemble(chunks []ContextChunk) (string, []Citation) {
	var b strings.Builder
	var citations []Citation
	used := 0

	for _, c := range chunks {
		section := a.renderChunk(c)
		cost := len([]rune(section))
		if len(citations) > 0 {
			cost += len([]rune(a.separator))
		}
		if used+cost > a.budget {
			continue
		}
		if len(citations) > 0 {
			b.WriteString(a.separator)
		}
		b.WriteString(section)
		used += cost
		citations = append(citations, Citation{
			DocumentID: c.DocumentID,
			ChunkID:    c.ChunkID,
			Page:       c.Page,
			Score:      c.Score,
		})
	}

	if len(citations) == 0 {
		return llm.NoContextMarker, nil
	}
	return b.String(), citations
}

// renderChunk formats one chunk with its provenance header.
func (a *Assembler) renderChunk(c ContextChunk) string {
	if c.Page > 0 {
		return fmt.Sprintf("[document %s, page %d]\n%s", c.DocumentID, c.Page, c.Text)
	}
	return fmt.Sprintf("[document %s]\n%s", c.DocumentID, c.Text)
}
