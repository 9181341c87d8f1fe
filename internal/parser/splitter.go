package parser

import (
	"strings"

	"contract-review/internal/models"
)

// defaultSeparators is the split priority: paragraph break first, then line
// break, then word boundary, then a hard cut mid-word.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// SplitPages splits each page's text into overlapping chunks of at most
// chunkSize characters. Chunk numbering restarts per page and every chunk
// carries the page number and source path of its page. A page with no text
// yields no chunks.
func SplitPages(pages []models.PageRecord, chunkSize, overlap int) []models.Chunk {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	var chunks []models.Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		pieces := splitRecursive(text, chunkSize, defaultSeparators)
		for i, content := range mergePieces(pieces, chunkSize, overlap) {
			chunks = append(chunks, models.Chunk{
				Content:    content,
				SourcePath: page.SourcePath,
				PageNumber: page.PageNumber,
				ChunkID:    i + 1,
			})
		}
	}
	return chunks
}

// splitRecursive breaks text into pieces no longer than chunkSize using the
// coarsest separator that occurs in the text, falling back to the next finer
// one for pieces that are still too long. Separators stay attached to the
// piece before them so concatenating all pieces reproduces the input.
func splitRecursive(text string, chunkSize int, separators []string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	// the list always ends with "", so a run without any separator gets
	// hard-cut at the chunk size instead of being kept whole
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		var pieces []string
		for len(text) > chunkSize {
			pieces = append(pieces, text[:chunkSize])
			text = text[chunkSize:]
		}
		if text != "" {
			pieces = append(pieces, text)
		}
		return pieces
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) > chunkSize {
			pieces = append(pieces, splitRecursive(part, chunkSize, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// mergePieces joins adjacent pieces back together up to chunkSize. When a
// chunk is emitted, up to overlap characters of its tail pieces are carried
// into the next chunk to preserve context across the boundary.
func mergePieces(pieces []string, chunkSize, overlap int) []string {
	var chunks []string
	var window []string
	total := 0
	for _, p := range pieces {
		if total+len(p) > chunkSize && len(window) > 0 {
			if chunk := strings.Join(window, ""); strings.TrimSpace(chunk) != "" {
				chunks = append(chunks, chunk)
			}
			// drop from the front until the carried tail fits the overlap
			// budget and leaves room for the next piece
			for len(window) > 0 && (total > overlap || total+len(p) > chunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p)
	}
	if chunk := strings.Join(window, ""); strings.TrimSpace(chunk) != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
