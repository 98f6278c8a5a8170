package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantErr       bool
	}{
		{"defaults", DefaultChunkSize, DefaultOverlap, false},
		{"no overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 11, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplit_RawLengthCoverage(t *testing.T) {
	s, err := New(1000, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := strings.Repeat("a", 2500)

	spans := s.Split(text)
	wantOffsets := []int{0, 800, 1600, 2400}
	if len(spans) != len(wantOffsets) {
		t.Fatalf("expected %d spans, got %d", len(wantOffsets), len(spans))
	}
	for i, sp := range spans {
		if sp.Offset != wantOffsets[i] {
			t.Errorf("span %d: offset %d, want %d", i, sp.Offset, wantOffsets[i])
		}
		if sp.Position != i {
			t.Errorf("span %d: position %d", i, sp.Position)
		}
	}
	if got := len(spans[0].Text); got != 1000 {
		t.Errorf("first span length %d, want 1000", got)
	}
	if got := len(spans[3].Text); got != 100 {
		t.Errorf("last span length %d, want 100", got)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, _ := New(100, 10)
	for _, in := range []string{"", "   ", "\n\t\n"} {
		if spans := s.Split(in); len(spans) != 0 {
			t.Errorf("Split(%q) returned %d spans", in, len(spans))
		}
	}
}

func TestSplit_ShortInput(t *testing.T) {
	s, _ := New(100, 10)
	spans := s.Split("Just one sentence.")
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != "Just one sentence." {
		t.Errorf("unexpected text %q", spans[0].Text)
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	s, _ := New(40, 15)
	text := "The first sentence is here. The second one follows it closely."

	spans := s.Split(text)
	if len(spans) < 2 {
		t.Fatalf("expected several spans, got %d", len(spans))
	}
	if spans[0].Text != "The first sentence is here." {
		t.Errorf("first span did not end at the sentence boundary: %q", spans[0].Text)
	}
}

func TestSplit_CoversInputWithBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 5000; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%17))
		b.WriteString(" ends here. ")
		if i%9 == 0 {
			b.WriteString("\n")
		}
	}
	text := b.String()
	runes := []rune(text)

	s, _ := New(300, 60)
	spans := s.Split(text)
	assertCoverage(t, s, runes, spans)
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("ж", 250)
	s, _ := New(100, 20)

	spans := s.Split(text)
	for _, sp := range spans {
		if n := utf8.RuneCountInString(sp.Text); n > 100 {
			t.Errorf("span %d has %d runes", sp.Position, n)
		}
	}
	assertCoverage(t, s, []rune(text), spans)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma. Delta epsilon!\n", 200)
	s, _ := New(250, 50)

	a := s.Split(text)
	b := s.Split(text)
	if len(a) != len(b) {
		t.Fatalf("span count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("span %d differs", i)
		}
	}
}

func assertCoverage(t *testing.T, s *Splitter, runes []rune, spans []Span) {
	t.Helper()
	if len(spans) == 0 {
		t.Fatal("no spans")
	}
	if spans[0].Offset != 0 {
		t.Fatalf("first span starts at %d", spans[0].Offset)
	}
	covered := 0
	for i, sp := range spans {
		n := utf8.RuneCountInString(sp.Text)
		if n > s.Size() {
			t.Errorf("span %d longer than size: %d", i, n)
		}
		if sp.Offset > covered {
			t.Fatalf("gap before span %d: covered %d, offset %d", i, covered, sp.Offset)
		}
		if string(runes[sp.Offset:sp.Offset+n]) != sp.Text {
			t.Fatalf("span %d text does not match input at its offset", i)
		}
		covered = max(covered, sp.Offset+n)
	}
	if covered != len(runes) {
		t.Errorf("spans cover %d of %d runes", covered, len(runes))
	}
}
