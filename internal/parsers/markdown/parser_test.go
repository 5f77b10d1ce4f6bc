package markdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	p := New()
	require.NotNil(t, p)
	assert.Equal(t, "markdown", p.Name())
}

func TestSupports(t *testing.T) {
	tests := []struct {
		name string
		src  domain.RawSource
		want bool
	}{
		{"md extension", domain.RawSource{Path: "/notes/todo.md"}, true},
		{"markdown extension", domain.RawSource{Path: "/notes/readme.markdown"}, true},
		{"uppercase extension", domain.RawSource{Path: "/notes/TODO.MD"}, true},
		{"txt extension", domain.RawSource{Path: "/notes/todo.txt"}, false},
		{"no extension", domain.RawSource{Path: "/notes/todo"}, false},
		{
			"falls back to meta source path",
			domain.RawSource{Meta: domain.DocumentMeta{SourcePath: "/notes/todo.md"}},
			true,
		},
	}

	p := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Supports(tc.src))
		})
	}
}

func testSource(content string) domain.RawSource {
	return domain.RawSource{
		Path: "/notes/test.md",
		Data: []byte(content),
		Meta: domain.DocumentMeta{
			SourcePath: "/notes/test.md",
			Project:    "testproj",
			SourceType: domain.SourceTypeMarkdown,
			Language:   "en",
		},
	}
}

const fixture = `---
date: 2024-03-01
lang: de
type: recipe
---
Intro paragraph.

# Alpha

Alpha body line one.
Alpha body line two.

## Beta

Beta body.`

func TestParse_Sections(t *testing.T) {
	p := New()
	doc, err := p.Parse(context.Background(), testSource(fixture))
	require.NoError(t, err)
	require.Len(t, doc.Sections, 3)

	assert.Equal(t, "Intro paragraph.", doc.Sections[0].Text)
	assert.Equal(t, "Alpha\n\nAlpha body line one.\nAlpha body line two.", doc.Sections[1].Text)
	assert.Equal(t, "Beta\n\nBeta body.", doc.Sections[2].Text)
}

func TestParse_FrontmatterRefinesMeta(t *testing.T) {
	p := New()
	doc, err := p.Parse(context.Background(), testSource(fixture))
	require.NoError(t, err)

	require.NotNil(t, doc.Meta.SourceDate)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, want.Equal(*doc.Meta.SourceDate))
	assert.Equal(t, "de", doc.Meta.Language)
	assert.Equal(t, domain.SourceTypeRecipe, doc.Meta.SourceType)

	// Identity is never touched.
	assert.Equal(t, "/notes/test.md", doc.Meta.SourcePath)
	assert.Equal(t, "testproj", doc.Meta.Project)
}

func TestParse_FrontmatterDateOverridesExisting(t *testing.T) {
	p := New()
	src := testSource(fixture)
	mtime := time.Date(2020, 5, 5, 12, 0, 0, 0, time.UTC)
	src.Meta.SourceDate = &mtime

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)

	require.NotNil(t, doc.Meta.SourceDate)
	assert.Equal(t, 2024, doc.Meta.SourceDate.Year())
}

func TestParse_FrontmatterLenient(t *testing.T) {
	p := New()
	src := testSource(`---
date: last tuesday
lang: deutsch
type: banana
---
Body text.`)

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)

	// Unparseable values leave the incoming metadata alone.
	assert.Nil(t, doc.Meta.SourceDate)
	assert.Equal(t, "en", doc.Meta.Language)
	assert.Equal(t, domain.SourceTypeMarkdown, doc.Meta.SourceType)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Body text.", doc.Sections[0].Text)
}

func TestParse_FrontmatterVariants(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		check    func(t *testing.T, meta domain.DocumentMeta)
	}{
		{
			name:   "rfc3339 date",
			header: "date: 2024-03-01T09:30:00Z",
			check: func(t *testing.T, meta domain.DocumentMeta) {
				require.NotNil(t, meta.SourceDate)
				assert.Equal(t, 9, meta.SourceDate.Hour())
			},
		},
		{
			name:   "language key instead of lang",
			header: "language: FR",
			check: func(t *testing.T, meta domain.DocumentMeta) {
				assert.Equal(t, "fr", meta.Language)
			},
		},
		{
			name:   "lang wins over language",
			header: "lang: de\nlanguage: fr",
			check: func(t *testing.T, meta domain.DocumentMeta) {
				assert.Equal(t, "de", meta.Language)
			},
		},
		{
			name:   "type uppercased in file",
			header: "type: PDF",
			check: func(t *testing.T, meta domain.DocumentMeta) {
				assert.Equal(t, domain.SourceTypePDF, meta.SourceType)
			},
		},
	}

	p := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := testSource("---\n" + tc.header + "\n---\nBody.")
			doc, err := p.Parse(context.Background(), src)
			require.NoError(t, err)
			tc.check(t, doc.Meta)
		})
	}
}

func TestParse_MalformedFrontmatter(t *testing.T) {
	p := New()
	src := testSource("---\n: [unclosed\n---\nBody.")

	_, err := p.Parse(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frontmatter")
}

func TestParse_UnclosedFrontmatterIsContent(t *testing.T) {
	p := New()
	src := testSource("---\njust text\nmore text")

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	// The dashes clean away as a horizontal rule; the text stays.
	assert.Equal(t, "just text\nmore text", doc.Sections[0].Text)

	loc, err := doc.Sections[0].Locate(0, len(doc.Sections[0].Text))
	require.NoError(t, err)
	assert.Equal(t, domain.LineLocator{StartLine: 2, EndLine: 3}, loc)
}

func TestParse_HeadingNesting(t *testing.T) {
	p := New()
	src := testSource(`# A
## B
text b
## C
text c
# D
text d`)

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 4)

	paths := make([][]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		loc, err := s.Locate(0, len(s.Text))
		require.NoError(t, err)
		h, ok := loc.(domain.HeadingLocator)
		require.True(t, ok)
		paths = append(paths, h.Path)
	}

	assert.Equal(t, [][]string{
		{"A"},
		{"A", "B"},
		{"A", "C"},
		{"D"},
	}, paths)
}

func TestParse_PreambleUsesLineLocator(t *testing.T) {
	p := New()
	src := testSource("Before any heading.\n\n# First\n\nUnder it.")

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)

	loc, err := doc.Sections[0].Locate(0, len(doc.Sections[0].Text))
	require.NoError(t, err)
	assert.Equal(t, domain.LineLocator{StartLine: 1, EndLine: 1}, loc)

	loc, err = doc.Sections[1].Locate(0, len(doc.Sections[1].Text))
	require.NoError(t, err)
	h, ok := loc.(domain.HeadingLocator)
	require.True(t, ok)
	assert.Equal(t, []string{"First"}, h.Path)
	assert.Equal(t, 3, h.StartLine)
	assert.Equal(t, 5, h.EndLine)
}

func TestParse_LocateMapsSourceLines(t *testing.T) {
	p := New()
	doc, err := p.Parse(context.Background(), testSource(fixture))
	require.NoError(t, err)
	require.Len(t, doc.Sections, 3)

	// Preamble starts on source line 6, after the frontmatter block.
	loc, err := doc.Sections[0].Locate(0, len(doc.Sections[0].Text))
	require.NoError(t, err)
	assert.Equal(t, domain.LineLocator{StartLine: 6, EndLine: 6}, loc)

	alpha := doc.Sections[1]

	// The heading title alone.
	loc, err = alpha.Locate(0, len("Alpha"))
	require.NoError(t, err)
	assert.Equal(t, domain.HeadingLocator{
		Path: []string{"Alpha"}, StartLine: 8, EndLine: 8,
	}, loc)

	// Both body lines, skipping the title and blank separator.
	loc, err = alpha.Locate(7, len(alpha.Text))
	require.NoError(t, err)
	assert.Equal(t, domain.HeadingLocator{
		Path: []string{"Alpha"}, StartLine: 10, EndLine: 11,
	}, loc)

	// Whole section.
	loc, err = alpha.Locate(0, len(alpha.Text))
	require.NoError(t, err)
	assert.Equal(t, domain.HeadingLocator{
		Path: []string{"Alpha"}, StartLine: 8, EndLine: 11,
	}, loc)
}

func TestParse_LocateRejectsBadRanges(t *testing.T) {
	p := New()
	doc, err := p.Parse(context.Background(), testSource(fixture))
	require.NoError(t, err)

	sec := doc.Sections[0]
	n := len(sec.Text)

	var locErr *domain.LocatorError
	for _, r := range [][2]int{{0, n + 1}, {5, 5}, {-1, 3}, {8, 2}} {
		_, err := sec.Locate(r[0], r[1])
		require.Error(t, err)
		assert.ErrorAs(t, err, &locErr)
	}
}

func TestParse_FencedCode(t *testing.T) {
	p := New()
	src := testSource("# Code\n\n```go\n# not a heading\nx := 1\n```\n\nafter")

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)

	sec := doc.Sections[0]
	assert.Contains(t, sec.Text, "x := 1")
	assert.Contains(t, sec.Text, "# not a heading")

	loc, err := sec.Locate(0, len(sec.Text))
	require.NoError(t, err)
	h, ok := loc.(domain.HeadingLocator)
	require.True(t, ok)
	assert.Equal(t, []string{"Code"}, h.Path)
}

func TestParse_InlineCleaning(t *testing.T) {
	p := New()
	src := testSource("See [docs](https://example.com) and ![diagram](a.png) and `ok` and **bold**.")

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "See docs and diagram and ok and bold.", doc.Sections[0].Text)
}

func TestCleanInline(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"link to text", "see [here](https://x.dev)", "see here"},
		{"image to alt", "![alt text](img.png)", "alt text"},
		{"inline code kept", "run `loci index` now", "run loci index now"},
		{"bold removed", "**bold** words", "bold words"},
		{"single underscore kept", "snake_case stays", "snake_case stays"},
		{"blockquote stripped", "> quoted line", "quoted line"},
		{"nested blockquote stripped", "> > deep quote", "deep quote"},
		{"bullet stripped", "- item one", "item one"},
		{"numbered stripped", "12. item twelve", "item twelve"},
		{"horizontal rule blanked", "---", ""},
		{"plain text untouched", "nothing fancy", "nothing fancy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanInline(tc.input))
		})
	}
}

func TestParse_CRLFNormalised(t *testing.T) {
	p := New()
	src := testSource("# Title\r\n\r\nbody line\r\n")

	doc, err := p.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Title\n\nbody line", doc.Sections[0].Text)
}

func TestParse_EmptyDocument(t *testing.T) {
	p := New()
	for _, content := range []string{"", "   \n\n  ", "---\ndate: 2024-01-01\n---\n"} {
		doc, err := p.Parse(context.Background(), testSource(content))
		require.NoError(t, err)
		assert.Empty(t, doc.Sections)
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Parser)(nil)
}

func BenchmarkParse(b *testing.B) {
	p := New()
	src := testSource(fixture)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Parse(context.Background(), src)
	}
}
