package chunker

import "fmt"

// Chunker splits extracted document text into overlapping fixed-size windows.
// Windows are measured in runes so multibyte text does not get split
// mid-character.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. size must be greater than 0 and overlap must be
// at least 0 and smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be at least 0 and smaller than chunk size, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces consecutive windows of the configured size, advancing the
// window start by size-overlap each step. The final window takes whatever
// remains and may be shorter. Empty input yields an empty slice.
//
// For any two adjacent windows the trailing overlap runes of the first equal
// the leading overlap runes of the second, except at the final boundary where
// the last window may cover less than the full overlap.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return []string{}
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }
