package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/loci-labs/loci/internal/core/domain"
)

// lineSection builds a section whose locator reports the byte span it
// was asked about, so tests can see exactly what the chunker requested.
func lineSection(text string) domain.Section {
	return domain.Section{
		Text: text,
		Locate: func(start, end int) (domain.Locator, error) {
			return domain.LineLocator{StartLine: start + 1, EndLine: end}, nil
		},
	}
}

// numberedWords returns "w000 w001 ..." so offsets are predictable:
// token i occupies bytes [5i, 5i+4).
func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(words, " ")
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		if s.targetTokens != DefaultTargetTokens {
			t.Errorf("expected targetTokens %d, got %d", DefaultTargetTokens, s.targetTokens)
		}
		if s.overlapTokens != DefaultOverlapTokens {
			t.Errorf("expected overlapTokens %d, got %d", DefaultOverlapTokens, s.overlapTokens)
		}
		if s.minChars != DefaultMinChars {
			t.Errorf("expected minChars %d, got %d", DefaultMinChars, s.minChars)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		s := New(WithTargetTokens(128), WithOverlapTokens(16), WithMinChars(5))
		if s.targetTokens != 128 || s.overlapTokens != 16 || s.minChars != 5 {
			t.Errorf("options not applied: %+v", s)
		}
	})

	t.Run("overlap exceeds target", func(t *testing.T) {
		s := New(WithTargetTokens(100), WithOverlapTokens(150))
		if s.overlapTokens >= s.targetTokens {
			t.Error("overlap should be reduced when it exceeds the target")
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithTargetTokens(0), WithOverlapTokens(-1), WithMinChars(-3))
		if s.targetTokens != DefaultTargetTokens {
			t.Errorf("expected default targetTokens, got %d", s.targetTokens)
		}
		if s.overlapTokens != DefaultOverlapTokens {
			t.Errorf("expected default overlapTokens, got %d", s.overlapTokens)
		}
		if s.minChars != DefaultMinChars {
			t.Errorf("expected default minChars, got %d", s.minChars)
		}
	})
}

func TestSplit_SingleChunk(t *testing.T) {
	text := "The write ahead log keeps readers unblocked during commits."
	doc := &domain.ParsedDocument{Sections: []domain.Section{lineSection(text)}}

	drafts, err := New().Split(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}

	d := drafts[0]
	if d.Content != text {
		t.Errorf("content mismatch: %q", d.Content)
	}
	if d.TokenCount != 9 {
		t.Errorf("expected 9 tokens, got %d", d.TokenCount)
	}
	if d.ChunkIndex != 0 {
		t.Errorf("expected index 0, got %d", d.ChunkIndex)
	}
	if d.TermCount != 9 {
		t.Errorf("expected 9 terms, got %d", d.TermCount)
	}
	if d.TermFreqs["readers"] != 1 || d.TermFreqs["the"] != 1 {
		t.Errorf("unexpected term frequencies: %v", d.TermFreqs)
	}

	loc, ok := d.Locator.(domain.LineLocator)
	if !ok {
		t.Fatalf("expected LineLocator, got %T", d.Locator)
	}
	if loc.StartLine != 1 || loc.EndLine != len(text) {
		t.Errorf("locator span [%d, %d] does not cover the chunk", loc.StartLine, loc.EndLine)
	}
}

func TestSplit_OverlapWindows(t *testing.T) {
	doc := &domain.ParsedDocument{Sections: []domain.Section{lineSection(numberedWords(100))}}

	s := New(WithTargetTokens(40), WithOverlapTokens(10), WithMinChars(1))
	drafts, err := s.Split(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Step 30: windows [0,40) [30,70) [60,100)
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}

	bounds := []struct{ first, last string }{
		{"w000", "w039"},
		{"w030", "w069"},
		{"w060", "w099"},
	}
	for i, d := range drafts {
		if d.ChunkIndex != i {
			t.Errorf("draft %d: expected index %d, got %d", i, i, d.ChunkIndex)
		}
		if d.TokenCount != 40 {
			t.Errorf("draft %d: expected 40 tokens, got %d", i, d.TokenCount)
		}
		if !strings.HasPrefix(d.Content, bounds[i].first) {
			t.Errorf("draft %d should start at %s, got %q", i, bounds[i].first, d.Content[:4])
		}
		if !strings.HasSuffix(d.Content, bounds[i].last) {
			t.Errorf("draft %d should end at %s", i, bounds[i].last)
		}
	}
}

func TestSplit_CoversEveryToken(t *testing.T) {
	const total = 55
	doc := &domain.ParsedDocument{Sections: []domain.Section{lineSection(numberedWords(total))}}

	s := New(WithTargetTokens(20), WithOverlapTokens(5), WithMinChars(1))
	drafts, err := s.Split(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, d := range drafts {
		for _, w := range strings.Fields(d.Content) {
			seen[w] = true
		}
	}
	for i := 0; i < total; i++ {
		w := fmt.Sprintf("w%03d", i)
		if !seen[w] {
			t.Errorf("token %s not covered by any chunk", w)
		}
	}
}

func TestSplit_SpansSections(t *testing.T) {
	located := make([]int, 0, 2)
	section := func(idx int, text string) domain.Section {
		return domain.Section{
			Text: text,
			Locate: func(start, end int) (domain.Locator, error) {
				located = append(located, idx)
				return domain.LineLocator{StartLine: start + 1, EndLine: end}, nil
			},
		}
	}

	first := "Alpha section covers connection pooling basics."
	second := "Beta section covers write ahead logging."
	doc := &domain.ParsedDocument{Sections: []domain.Section{
		section(0, first),
		section(1, second),
	}}

	drafts, err := New().Split(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft spanning both sections, got %d", len(drafts))
	}

	want := first + "\n\n" + second
	if drafts[0].Content != want {
		t.Errorf("content mismatch:\n got %q\nwant %q", drafts[0].Content, want)
	}

	// Only the first contributing section supplies the locator.
	if len(located) != 1 || located[0] != 0 {
		t.Errorf("expected a single Locate call on section 0, got %v", located)
	}
}

func TestSplit_LargeSectionNarrowsLocators(t *testing.T) {
	var spans [][2]int
	sec := domain.Section{
		Text: numberedWords(100),
		Locate: func(start, end int) (domain.Locator, error) {
			spans = append(spans, [2]int{start, end})
			return domain.LineLocator{StartLine: start + 1, EndLine: end}, nil
		},
	}
	doc := &domain.ParsedDocument{Sections: []domain.Section{sec}}

	s := New(WithTargetTokens(40), WithOverlapTokens(0), WithMinChars(1))
	drafts, err := s.Split(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}

	want := [][2]int{{0, 199}, {200, 399}, {400, 499}}
	for i, span := range spans {
		if span != want[i] {
			t.Errorf("chunk %d: expected span %v, got %v", i, want[i], span)
		}
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  *domain.ParsedDocument
	}{
		{"no sections", &domain.ParsedDocument{}},
		{"whitespace only", &domain.ParsedDocument{
			Sections: []domain.Section{lineSection("   \n\t  ")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := New().Split(tt.doc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(drafts) != 0 {
				t.Errorf("expected no drafts, got %d", len(drafts))
			}
		})
	}
}

func TestSplit_QualityFilter(t *testing.T) {
	t.Run("below min chars", func(t *testing.T) {
		doc := &domain.ParsedDocument{Sections: []domain.Section{lineSection("ok go")}}
		drafts, err := New().Split(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drafts) != 0 {
			t.Errorf("expected short chunk to be dropped, got %d drafts", len(drafts))
		}
	})

	t.Run("navigation link farm", func(t *testing.T) {
		nav := "- [Home](/home)\n- [Docs](/docs)\n- [About](/about)\n- [Contact](/contact)"
		doc := &domain.ParsedDocument{Sections: []domain.Section{lineSection(nav)}}
		drafts, err := New().Split(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drafts) != 0 {
			t.Errorf("expected link farm to be dropped, got %d drafts", len(drafts))
		}
	})

	t.Run("copyright footer", func(t *testing.T) {
		doc := &domain.ParsedDocument{Sections: []domain.Section{
			lineSection("© 2024 Example Corp. All rights reserved worldwide."),
		}}
		drafts, err := New().Split(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drafts) != 0 {
			t.Errorf("expected legal footer to be dropped, got %d drafts", len(drafts))
		}
	})

	t.Run("indexes stay contiguous after a drop", func(t *testing.T) {
		links := strings.Repeat("[a](/a)\n", 9) + "[a](/a)"
		doc := &domain.ParsedDocument{Sections: []domain.Section{
			lineSection("alpha bravo charlie delta echo foxtrot golf hotel india juliet"),
			lineSection(links),
			lineSection("kilo lima mike november oscar papa quebec romeo sierra tango"),
		}}

		s := New(WithTargetTokens(10), WithOverlapTokens(0))
		drafts, err := s.Split(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drafts) != 2 {
			t.Fatalf("expected 2 kept drafts, got %d", len(drafts))
		}
		for i, d := range drafts {
			if d.ChunkIndex != i {
				t.Errorf("expected contiguous index %d, got %d", i, d.ChunkIndex)
			}
		}
		if !strings.HasPrefix(drafts[0].Content, "alpha") {
			t.Errorf("first kept draft should open the first section, got %q", drafts[0].Content)
		}
		if !strings.HasPrefix(drafts[1].Content, "kilo") {
			t.Errorf("second kept draft should open the third section, got %q", drafts[1].Content)
		}
	})
}

func TestSplit_LocateFailureAborts(t *testing.T) {
	sec := domain.Section{
		Text: "enough text here to clear the minimum chunk size easily",
		Locate: func(int, int) (domain.Locator, error) {
			return nil, &domain.LocatorError{Kind: domain.LocatorLine, Reason: "no source mapping"}
		},
	}
	doc := &domain.ParsedDocument{Sections: []domain.Section{sec}}

	drafts, err := New().Split(doc)
	if err == nil {
		t.Fatal("expected an error from the failing locator")
	}
	if drafts != nil {
		t.Errorf("expected no drafts on failure, got %d", len(drafts))
	}

	var lerr *domain.LocatorError
	if !errors.As(err, &lerr) {
		t.Errorf("expected *domain.LocatorError, got %T", err)
	}
}
