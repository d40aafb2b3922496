package indexer

import "fmt"

// Chunk is a contiguous span of document text. Start and End are rune
// offsets into the normalized document text; Page is filled in from the
// document's page spans after chunking.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
	Page  int
}

// Chunker splits normalized text into overlapping chunks, preferring
// sentence boundaries. Chunking is deterministic: the same text and settings
// always produce byte-identical chunks.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker creates a chunker. maxSize is the chunk size cap in runes,
// overlap the number of runes repeated from the end of one chunk at the
// start of the next. overlap must be smaller than maxSize.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", maxSize, overlap)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Chunk splits text into ordered chunks. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.maxSize {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: len(runes)}}
	}

	boundaries := sentenceBoundaries(runes)

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		limit := start + c.maxSize
		if limit >= len(runes) {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  string(runes[start:]),
				Start: start,
				End:   len(runes),
			})
			break
		}

		// Largest sentence boundary that still fits the cap.
		end := -1
		for _, b := range boundaries {
			if b <= start {
				continue
			}
			if b > limit {
				break
			}
			end = b
		}

		if end == -1 {
			// No sentence fits: hard split at the cap, no overlap so the
			// oversized run is not re-chewed.
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  string(runes[start:limit]),
				Start: start,
				End:   limit,
			})
			start = limit
			continue
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceBoundaries returns the rune offsets that end a sentence: just
// after terminal punctuation followed by whitespace, and just after a
// newline. Offsets are strictly increasing.
func sentenceBoundaries(runes []rune) []int {
	var boundaries []int
	for i, r := range runes {
		switch r {
		case '\n':
			boundaries = append(boundaries, i+1)
		case '.', '!', '?':
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				// The boundary sits after the trailing space when present, so
				// the next chunk does not start with one.
				end := i + 1
				if i+1 < len(runes) && runes[i+1] == ' ' {
					end = i + 2
				}
				boundaries = append(boundaries, end)
			}
		}
	}
	// Newline and punctuation rules can both fire at the same offset.
	dedup := boundaries[:0]
	prev := -1
	for _, b := range boundaries {
		if b != prev {
			dedup = append(dedup, b)
			prev = b
		}
	}
	return dedup
}
