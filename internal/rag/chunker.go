// Package rag holds the retrieval pipeline primitives: chunking, metadata
// enrichment, intent classification and the prompt templates shared by the
// ask and chat flows.
package rag

import (
	"strings"
	"unicode/utf8"

	"github.com/coursepilot/backend/internal/extract"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Piece is one chunk of unit text with its inherited page number. Not yet
// enriched or embedded.
type Piece struct {
	Text       string
	PageNumber *int
}

// separators in preference order: paragraph break, line break, sentence
// boundary, word boundary. Character boundary is the implicit last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// ChunkUnits splits every extracted unit independently so chunks never span
// a page or slide boundary. Each piece inherits its unit's page number.
func ChunkUnits(units []extract.Unit, size, overlap int) []Piece {
	var pieces []Piece
	for _, unit := range units {
		for _, text := range Split(unit.Text, size, overlap) {
			pieces = append(pieces, Piece{Text: text, PageNumber: unit.PageNumber})
		}
	}
	return pieces
}

// Split cuts text into windows of at most size runes with overlap runes
// shared between consecutive windows. Cuts prefer the separator order above,
// searching backwards from the size limit but never below half the window,
// so chunks stay dense. Whitespace-only fragments are dropped.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size/2 {
		overlap = DefaultChunkOverlap
		if overlap >= size/2 {
			overlap = size / 4
		}
	}
	runes := []rune(text)
	if len(runes) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = boundary(runes, start, end)
		}
		if piece := string(runes[start:end]); strings.TrimSpace(piece) != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// boundary picks the cut position inside (start, limit]: the end of the last
// occurrence of the highest-priority separator in the back half of the
// window, or the hard limit when no separator is found.
func boundary(runes []rune, start, limit int) int {
	min := start + (limit-start)/2
	window := string(runes[min:limit])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := min + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		if cut > start && cut <= limit {
			return cut
		}
	}
	return limit
}
