// Package textsplit cuts extracted document text into overlapping chunks
// sized for embedding and retrieval.
package textsplit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docgenius/types"

	"github.com/google/uuid"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators in priority order. A chunk boundary prefers the latest
// paragraph break inside the window, then line breaks, sentence ends,
// spaces, and finally a hard rune cutoff.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

type Splitter struct {
	maxSize int
	overlap int
}

// New validates the chunking parameters. overlap must be smaller than
// maxSize, otherwise a window could never advance.
func New(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		return nil, types.InvalidConfigError{Field: "overlap", Reason: "must not be negative"}
	}
	if overlap >= maxSize {
		return nil, types.InvalidConfigError{
			Field:  "overlap",
			Reason: fmt.Sprintf("must be smaller than chunk size (%d >= %d)", overlap, maxSize),
		}
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split chunks every extracted text. Chunk ordinals restart per source
// document and consecutive chunks from one source share exactly the
// configured overlap.
func (s *Splitter) Split(texts []types.ExtractedText) []types.Chunk {
	var chunks []types.Chunk
	for _, text := range texts {
		for i, content := range s.splitText(text.Text) {
			chunks = append(chunks, types.Chunk{
				ID:      chunkID(text.Source, i, content),
				Source:  text.Source,
				Index:   i,
				Content: content,
			})
		}
	}
	return chunks
}

func (s *Splitter) splitText(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for {
		end := start + s.maxSize
		if end >= len(runes) {
			parts = append(parts, string(runes[start:]))
			return parts
		}
		if cut := s.naturalBreak(runes[start:end]); cut > 0 {
			end = start + cut
		}
		parts = append(parts, string(runes[start:end]))
		start = end - s.overlap
	}
}

// naturalBreak returns the rune offset just past the last occurrence of the
// highest-priority separator inside the window, or 0 when no separator
// leaves enough room to advance past the overlap.
func (s *Splitter) naturalBreak(window []rune) int {
	str := string(window)
	for _, sep := range separators {
		i := strings.LastIndex(str, sep)
		if i < 0 {
			continue
		}
		off := utf8.RuneCountInString(str[:i+len(sep)])
		if off > s.overlap {
			return off
		}
	}
	return 0
}

// chunkID is deterministic so that re-chunking identical input yields the
// identical chunk sequence, IDs included.
func chunkID(source string, index int, content string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d#%s", source, index, content)))
}
