package chunk

import (
	"errors"
)

const (
	DefaultSize    = 512
	DefaultOverlap = 64
)

// boundarySeparators, in priority order. The chunker prefers cutting at a
// paragraph break, then a line break, then a sentence break, then a word
// break, and only falls back to a raw character cut when none of these
// occur inside the window.
var boundarySeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits text into overlapping spans. Spans are contiguous slices of
// the input: consecutive spans share exactly Overlap characters, so the
// original text can be reconstructed by concatenating spans minus their
// overlaps.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker for the given span size and overlap, both measured
// in runes. Overlap must be smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be > 0")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be >= 0 and < size")
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cuts text into spans of at most c.size runes. Empty input yields no
// spans; any non-empty input yields at least one.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var spans []string
	start := 0
	for {
		if len(runes)-start <= c.size {
			spans = append(spans, string(runes[start:]))
			return spans
		}
		cut := c.cutPoint(runes, start, start+c.size)
		spans = append(spans, string(runes[start:cut]))
		start = cut - c.overlap
	}
}

// cutPoint picks the end of the span starting at start, scanning the window
// for the latest occurrence of the highest-priority separator. The cut must
// land after start+overlap so the next span always makes progress.
func (c *Chunker) cutPoint(runes []rune, start, end int) int {
	minCut := start + c.overlap + 1
	for _, sep := range boundarySeparators {
		sepRunes := []rune(sep)
		for cut := end; cut >= minCut && cut-len(sepRunes) >= start; cut-- {
			if runesEqual(runes[cut-len(sepRunes):cut], sepRunes) {
				return cut
			}
		}
	}
	return end
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
