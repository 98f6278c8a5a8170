// Package chunker splits document text into overlapping spans.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Defaults used by the ingestion pipeline.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Span is one chunk of the input, Offset counted in runes.
type Span struct {
	Position int
	Offset   int
	Text     string
}

// Splitter produces spans of at most size runes, consecutive spans sharing
// overlap runes. A span end moves back to the nearest sentence or paragraph
// boundary if that boundary is still covered by the next span.
type Splitter struct {
	size    int
	overlap int
}

// New validates the parameters. size must be positive and 0 <= overlap < size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrConfiguration)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf(
			"chunk overlap must be in [0, %d), got %d: %w", size, overlap, domain.ErrConfiguration,
		)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the maximum span length in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the number of runes shared by consecutive spans.
func (s *Splitter) Overlap() int { return s.overlap }

// Split is pure: the same text always yields the same spans.
func (s *Splitter) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	step := s.size - s.overlap

	spans := make([]Span, 0, n/step+1)
	for start, pos := 0, 0; start < n; start, pos = start+step, pos+1 {
		end := min(start+s.size, n)
		if end < n {
			end = snapToBoundary(runes, start+step, end)
		}
		spans = append(spans, Span{
			Position: pos,
			Offset:   start,
			Text:     string(runes[start:end]),
		})
	}
	return spans
}

// snapToBoundary returns the largest boundary index in (lo, hi], or hi when none exists.
// The next span starts at lo, so any cut after it keeps the input covered.
func snapToBoundary(runes []rune, lo, hi int) int {
	for i := hi; i > lo; i-- {
		if isBoundary(runes, i) {
			return i
		}
	}
	return hi
}

// isBoundary reports whether a cut before runes[i] ends a sentence or a line.
func isBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '\n' {
		return true
	}
	if i >= len(runes) || !unicode.IsSpace(runes[i]) {
		return false
	}
	switch prev {
	case '.', '!', '?':
		return true
	}
	return false
}
