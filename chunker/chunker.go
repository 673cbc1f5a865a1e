package chunker

import (
	"errors"
	"fmt"
)

var ErrInvalidConfiguration = errors.New("invalid chunker configuration")

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Passage is a contiguous slice of the source text. Start and Length are
// measured in runes.
type Passage struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
}

func (p Passage) End() int {
	return p.Start + p.Length
}

type boundary int

const (
	paragraphBoundary boundary = iota
	lineBoundary
	wordBoundary
	charBoundary
)

// Split cuts text into passages of at most size runes. Cuts prefer paragraph
// breaks, then line breaks, then spaces. A passage that ends on a paragraph
// break is followed without overlap; any other cut lets the next passage
// reach back up to overlap runes, starting on a word.
func Split(text string, size, overlap int) ([]Passage, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidConfiguration, size, overlap)
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var passages []Passage

	start := 0

	for start < n {
		if n-start <= size {
			passages = append(passages, newPassage(len(passages), runes, start, n))
			break
		}

		end, kind := cut(runes, start, start+size)

		passages = append(passages, newPassage(len(passages), runes, start, end))

		start = nextStart(runes, start, end, overlap, kind)
	}

	return passages, nil
}

func newPassage(idx int, runes []rune, start, end int) Passage {
	return Passage{
		Index:  idx,
		Text:   string(runes[start:end]),
		Start:  start,
		Length: end - start,
	}
}

// cut returns the position right after the last and coarsest separator in
// (start, limit].
func cut(runes []rune, start, limit int) (int, boundary) {
	for i := limit - 2; i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2, paragraphBoundary
		}
	}

	for i := limit - 1; i >= start; i-- {
		if runes[i] == '\n' {
			return i + 1, lineBoundary
		}
	}

	for i := limit - 1; i >= start; i-- {
		if isBlank(runes[i]) {
			return i + 1, wordBoundary
		}
	}

	return limit, charBoundary
}

func nextStart(runes []rune, start, end, overlap int, kind boundary) int {
	if kind == paragraphBoundary || overlap == 0 {
		return end
	}

	next := end - overlap

	if kind == charBoundary {
		// no word starts inside an unbroken run
		if next <= start {
			return end
		}
		return next
	}

	// overlap never reaches back to or before the current start
	next = max(next, start+1)

	for next < end && !wordStart(runes, next) {
		next++
	}

	if next <= start {
		return end
	}

	return next
}

func wordStart(runes []rune, i int) bool {
	if isSpace(runes[i]) {
		return false
	}
	return i == 0 || isSpace(runes[i-1])
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t'
}

func isSpace(r rune) bool {
	return isBlank(r) || r == '\n'
}
