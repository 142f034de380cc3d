package intel

import "strings"

// Chunk is a contiguous, possibly overlapping window of a source document.
// Index is the position in document order across all documents of a run.
type Chunk struct {
	Text   string
	Source string
	Index  int
}

// SplitDocuments splits each document into windows of at most chunkSize
// characters with chunkOverlap characters of overlap, preserving document
// order and provenance. Deterministic for identical inputs.
func SplitDocuments(docs []Document, chunkSize, chunkOverlap int) []Chunk {
	var chunks []Chunk
	idx := 0
	for _, doc := range docs {
		for _, text := range splitText(doc.Content, chunkSize, chunkOverlap) {
			chunks = append(chunks, Chunk{Text: text, Source: doc.Source, Index: idx})
			idx++
		}
	}
	return chunks
}

// splitText slides a fixed-size window over text with overlap. When a window
// does not end the text, the split point is moved back to the last paragraph
// break in the window's final third, so a thought is not cut mid-sentence
// when a nearby natural boundary exists.
func splitText(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var out []string
	pos := 0
	for pos < len(text) {
		end := pos + chunkSize
		if end > len(text) {
			end = len(text)
		}
		window := text[pos:end]

		if end < len(text) {
			searchStart := len(window) * 2 / 3
			if idx := strings.LastIndex(window[searchStart:], "\n\n"); idx != -1 {
				end = pos + searchStart + idx
				window = text[pos:end]
			}
		}

		if strings.TrimSpace(window) != "" {
			out = append(out, window)
		}

		if end >= len(text) {
			break
		}
		next := end - chunkOverlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	if len(out) == 0 {
		out = []string{text}
	}
	return out
}
