// Package splitter breaks extracted page text into overlapping windows that are
// embedded and retrieved as a unit.
package splitter

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Page is the text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is one window of page text.
type Chunk struct {
	Index int // position across the whole document
	Page  int
	Text  string
}

// Recursive splits on the coarsest separator that occurs in the text, recursing
// into pieces that are still too long, then merges the pieces back into
// windows of at most size characters that overlap by up to overlap characters.
type Recursive struct {
	size       int
	overlap    int
	separators []string
}

// NewRecursive returns a splitter. overlap is clamped to [0, size).
func NewRecursive(size, overlap int) *Recursive {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Recursive{size: size, overlap: overlap, separators: DefaultSeparators}
}

// SplitPages splits every page on its own so that a chunk never spans pages.
// Pages without text produce no chunks.
func (r *Recursive) SplitPages(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		for _, text := range r.SplitText(p.Text) {
			chunks = append(chunks, Chunk{Index: len(chunks), Page: p.Number, Text: text})
		}
	}
	return chunks
}

// SplitText returns the windows for a single text.
func (r *Recursive) SplitText(text string) []string {
	return r.split(text, r.separators)
}

func (r *Recursive) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) < r.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, r.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, r.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, r.merge(good, separator)...)
	}
	return out
}

// merge joins small pieces into windows. When a window is full it is emitted
// and pieces are dropped from its front until at most overlap characters remain
// to seed the next window.
func (r *Recursive) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var out, current []string
	total := 0
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+joinCost(current, sepLen) > r.size {
			if len(current) > 0 {
				if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
					out = append(out, doc)
				}
				for total > r.overlap || (total+n+joinCost(current, sepLen) > r.size && total > 0) {
					drop := runeLen(current[0])
					if len(current) > 1 {
						drop += sepLen
					}
					total -= drop
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		out = append(out, doc)
	}
	return out
}

func joinCost(current []string, sepLen int) int {
	if len(current) > 0 {
		return sepLen
	}
	return 0
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
