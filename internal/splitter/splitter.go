// Package splitter implements deterministic text segmentation for the
// ingestion pipeline. Text is split recursively on a preference order of
// separators (paragraph, line, space, raw characters) and the resulting
// fragments are merged into chunks of at most chunkSize characters with a
// configurable overlap carried between consecutive chunks.
//
// Splitting is pure: the same input always yields the same chunks, and no
// state is kept between calls.
package splitter

import "strings"

// Chunk is a bounded piece of a source document, the unit of indexing.
type Chunk struct {
	// Text is the chunk content, trimmed of surrounding whitespace.
	Text string

	// Index is the zero-based position of the chunk within its document.
	Index int
}

// separators is the preference order tried when splitting. The empty string
// is the terminal fallback: raw character slicing.
var separators = []string{"\n\n", "\n", " ", ""}

// Split segments text into overlapping chunks of at most chunkSize
// characters. Consecutive chunks overlap by roughly overlap characters,
// rounded to the nearest separator boundary. Empty or whitespace-only input
// yields zero chunks. Split never fails.
func Split(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	pieces := splitText(text, separators, chunkSize, overlap)

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: p, Index: len(chunks)})
	}
	return chunks
}

// splitText splits text on the largest separator present, merges fragments
// that fit within chunkSize, and recurses with the remaining separators for
// any fragment that is still too large.
func splitText(text string, seps []string, chunkSize, overlap int) []string {
	sep := ""
	var rest []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return sliceRaw(text, chunkSize, overlap)
	}

	var final []string
	var pending []string
	for _, frag := range splitKeepSep(text, sep) {
		if len(frag) <= chunkSize {
			pending = append(pending, frag)
			continue
		}
		if len(pending) > 0 {
			final = append(final, mergeFragments(pending, chunkSize, overlap)...)
			pending = nil
		}
		final = append(final, splitText(frag, rest, chunkSize, overlap)...)
	}
	if len(pending) > 0 {
		final = append(final, mergeFragments(pending, chunkSize, overlap)...)
	}
	return final
}

// splitKeepSep splits text on sep, keeping the separator attached to the
// start of the following fragment so that concatenating the fragments
// reconstructs the input exactly.
func splitKeepSep(text, sep string) []string {
	parts := strings.Split(text, sep)
	frags := make([]string, 0, len(parts))
	if parts[0] != "" {
		frags = append(frags, parts[0])
	}
	for _, p := range parts[1:] {
		frags = append(frags, sep+p)
	}
	return frags
}

// mergeFragments greedily packs fragments into chunks of at most chunkSize
// characters. When a chunk is emitted, fragments are dropped from the front
// of the window until at most overlap characters remain, so the tail of each
// chunk reappears at the head of the next.
func mergeFragments(frags []string, chunkSize, overlap int) []string {
	var chunks []string
	var window []string
	total := 0

	for _, f := range frags {
		if total+len(f) > chunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for total > overlap || (total+len(f) > chunkSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, f)
		total += len(f)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// sliceRaw is the terminal fallback for text with no usable separator:
// fixed-size slices with exact character overlap.
func sliceRaw(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	for start := 0; start < len(text); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
