package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts long text into overlapping windows sized for a model
// prompt. Windows end on whitespace when one is available.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 6000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Chunk is one window of the text. Overlap is the leading part of Text that
// repeats the end of the previous window; it is empty for the first one.
type Chunk struct {
	Text    string
	Overlap string
}

func (s *Splitter) Split(text string) []string {
	chunks := s.Chunks(text)
	if len(chunks) == 0 {
		return nil
	}
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Text
	}
	return out
}

func (s *Splitter) Chunks(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		if chunk := strings.TrimSpace(text); chunk != "" {
			return []Chunk{{Text: chunk}}
		}
		return nil
	}

	out := make([]Chunk, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	prevEnd := 0
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = backToSpace(runes, start, end)
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunk := Chunk{Text: text}
			if len(out) > 0 && start < prevEnd {
				chunk.Overlap = strings.TrimSpace(string(runes[start:prevEnd]))
			}
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := forwardToSpace(runes, end-s.Overlap, end)
		if next <= start {
			next = end
		}
		start, prevEnd = next, end
	}
	return out
}

// backToSpace moves end left to the last whitespace in the second half of
// the window, keeping words whole.
func backToSpace(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// forwardToSpace moves start right until it follows whitespace so the
// overlap does not begin mid-word.
func forwardToSpace(runes []rune, start, limit int) int {
	for i := start; i < limit; i++ {
		if i == 0 || unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}
