// Package plaintext parses plain text files as one section of
// paragraphs. Paragraphs are runs of non-blank lines; chunk citations
// point at 1-based paragraph ranges.
package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles plain text documents.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs and reports.
func (p *Parser) Name() string {
	return "plaintext"
}

// Supports reports whether the source is a plain text file.
func (p *Parser) Supports(src domain.RawSource) bool {
	path := src.Path
	if path == "" {
		path = src.Meta.SourcePath
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return true
	}
	return false
}

// Parse splits the document into paragraphs and emits them as a single
// section whose locator cites paragraph ranges.
func (p *Parser) Parse(_ context.Context, src domain.RawSource) (*domain.ParsedDocument, error) {
	content := strings.ReplaceAll(string(src.Data), "\r\n", "\n")
	paras := splitParagraphs(content)

	doc := &domain.ParsedDocument{Meta: src.Meta}
	if len(paras) == 0 {
		return doc, nil
	}

	doc.Sections = []domain.Section{{
		Text:   strings.Join(paras, "\n\n"),
		Locate: makeLocate(paras),
	}}
	return doc, nil
}

// splitParagraphs groups consecutive non-blank lines. Newlines inside a
// paragraph are preserved so the section text reads like the source.
func splitParagraphs(content string) []string {
	var paras []string
	var current []string

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paras = append(paras, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paras = append(paras, strings.Join(current, "\n"))
	}
	return paras
}

// makeLocate maps byte ranges of the joined section text to 1-based
// paragraph ranges.
func makeLocate(paras []string) func(int, int) (domain.Locator, error) {
	// offsets[i] is where paragraph i starts in the joined text; each
	// paragraph is followed by a two-byte blank line separator.
	offsets := make([]int, len(paras)+1)
	for i, para := range paras {
		offsets[i+1] = offsets[i] + len(para) + 2
	}
	total := offsets[len(paras)] - 2

	return func(start, end int) (domain.Locator, error) {
		if start < 0 || end > total || start >= end {
			return nil, &domain.LocatorError{
				Kind:   domain.LocatorParagraph,
				Reason: fmt.Sprintf("byte range [%d,%d) outside section of %d bytes", start, end, total),
			}
		}

		first := sort.Search(len(paras), func(i int) bool { return offsets[i+1] > start })
		last := sort.Search(len(paras), func(i int) bool { return offsets[i+1] > end-1 })

		return domain.ParagraphLocator{Start: first + 1, End: last + 1}, nil
	}
}
