// Package markdown parses Markdown notes into locatable sections.
//
// The document is split at headings: every heading starts a section
// whose locator carries the heading path from the document root, plus
// the exact source line range. Text before the first heading becomes a
// section with a plain line locator. YAML frontmatter refines document
// metadata and never appears in section text.
package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles Markdown documents.
type Parser struct{}

// New creates a new Markdown parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs and reports.
func (p *Parser) Name() string {
	return "markdown"
}

// Supports reports whether the source looks like Markdown.
func (p *Parser) Supports(src domain.RawSource) bool {
	path := src.Path
	if path == "" {
		path = src.Meta.SourcePath
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// frontmatter is the subset of YAML frontmatter the engine uses.
type frontmatter struct {
	Date     string `yaml:"date"`
	Lang     string `yaml:"lang"`
	Language string `yaml:"language"`
	Type     string `yaml:"type"`
}

// Parse splits the document into heading sections with line-accurate
// locators.
func (p *Parser) Parse(_ context.Context, src domain.RawSource) (*domain.ParsedDocument, error) {
	content := strings.ReplaceAll(string(src.Data), "\r\n", "\n")

	body, bodyLine, fm, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	meta := src.Meta
	fm.apply(&meta)

	return &domain.ParsedDocument{
		Meta:     meta,
		Sections: buildSections(body, bodyLine),
	}, nil
}

// splitFrontmatter removes a leading YAML frontmatter block. It returns
// the remaining body, the 1-based source line the body starts on, and
// the decoded frontmatter. A document without frontmatter passes
// through unchanged.
func splitFrontmatter(content string) (string, int, frontmatter, error) {
	var fm frontmatter

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || lines[0] != "---" {
		return content, 1, fm, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") != "---" {
			continue
		}
		block := strings.Join(lines[1:i], "\n")
		if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
			return "", 0, fm, fmt.Errorf("parsing frontmatter: %w", err)
		}
		return strings.Join(lines[i+1:], "\n"), i + 2, fm, nil
	}

	// No closing fence: the opening dashes are content, not frontmatter.
	return content, 1, fm, nil
}

// apply refines document metadata from frontmatter. Unparseable values
// are ignored rather than failing the document; the identity pair is
// never touched.
func (fm frontmatter) apply(meta *domain.DocumentMeta) {
	if t, ok := fm.parseDate(); ok {
		meta.SourceDate = &t
	}

	lang := fm.Lang
	if lang == "" {
		lang = fm.Language
	}
	if isISO639(lang) {
		meta.Language = strings.ToLower(lang)
	}

	if fm.Type != "" {
		if st, err := domain.ParseSourceType(strings.ToLower(fm.Type)); err == nil {
			meta.SourceType = st
		}
	}
}

func (fm frontmatter) parseDate() (time.Time, bool) {
	raw := strings.TrimSpace(fm.Date)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isISO639(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}

// ==================== Section Building ====================

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	imageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	blockquoteRe = regexp.MustCompile(`^(?:>\s?)+`)
	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+`)
	hrRe         = regexp.MustCompile(`^[-*_]{3,}\s*$`)
)

// sectionBuilder accumulates the cleaned lines of one section together
// with their source line numbers.
type sectionBuilder struct {
	path     []string
	cleaned  []string
	srcLines []int
}

func (b *sectionBuilder) add(line string, srcLine int) {
	b.cleaned = append(b.cleaned, line)
	b.srcLines = append(b.srcLines, srcLine)
}

// flush emits the accumulated section, trimming blank edges. Sections
// with no visible content produce nothing.
func (b *sectionBuilder) flush(out []domain.Section) []domain.Section {
	lo, hi := 0, len(b.cleaned)
	for lo < hi && strings.TrimSpace(b.cleaned[lo]) == "" {
		lo++
	}
	for hi > lo && strings.TrimSpace(b.cleaned[hi-1]) == "" {
		hi--
	}
	if lo == hi {
		return out
	}

	lines := b.cleaned[lo:hi]
	srcLines := b.srcLines[lo:hi]
	path := append([]string(nil), b.path...)

	return append(out, domain.Section{
		Text:   strings.Join(lines, "\n"),
		Locate: makeLocate(lines, srcLines, path),
	})
}

// buildSections walks the body splitting at headings. bodyLine is the
// 1-based source line the body starts on, so citations point into the
// original file even when frontmatter was stripped.
func buildSections(body string, bodyLine int) []domain.Section {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var sections []domain.Section
	var stack []string // heading titles, root to current
	builder := &sectionBuilder{}
	inFence := false

	for i, rawLine := range strings.Split(body, "\n") {
		srcLine := bodyLine + i
		trimmed := strings.TrimSpace(rawLine)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			builder.add("", srcLine)
			continue
		}
		if inFence {
			// Code is content; keep it verbatim.
			builder.add(rawLine, srcLine)
			continue
		}

		if m := headingRe.FindStringSubmatch(rawLine); m != nil {
			sections = builder.flush(sections)

			level := len(m[1])
			title := strings.TrimSpace(cleanInline(m[2]))
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			stack = append(stack, title)

			builder = &sectionBuilder{path: append([]string(nil), stack...)}
			builder.add(title, srcLine)
			continue
		}

		builder.add(cleanInline(rawLine), srcLine)
	}

	return builder.flush(sections)
}

// cleanInline strips markdown markers that would pollute keyword terms
// and embeddings, preserving the visible text. Single * and _ survive
// so identifiers like snake_case stay whole. One input line always
// yields one output line.
func cleanInline(line string) string {
	if hrRe.MatchString(line) {
		return ""
	}
	line = blockquoteRe.ReplaceAllString(line, "")
	line = imageRe.ReplaceAllString(line, "$1")
	line = linkRe.ReplaceAllString(line, "$1")
	line = inlineCodeRe.ReplaceAllString(line, "$1")
	line = listMarkerRe.ReplaceAllString(line, "")
	line = strings.ReplaceAll(line, "**", "")
	line = strings.ReplaceAll(line, "__", "")
	return line
}

// makeLocate maps byte ranges of the joined section text back to source
// line ranges. With a heading path the result is a HeadingLocator,
// otherwise a LineLocator.
func makeLocate(lines []string, srcLines []int, path []string) func(int, int) (domain.Locator, error) {
	// offsets[i] is where line i starts in the joined text.
	offsets := make([]int, len(lines)+1)
	for i, line := range lines {
		offsets[i+1] = offsets[i] + len(line) + 1
	}
	total := offsets[len(lines)] - 1

	kind := domain.LocatorLine
	if len(path) > 0 {
		kind = domain.LocatorHeading
	}

	return func(start, end int) (domain.Locator, error) {
		if start < 0 || end > total || start >= end {
			return nil, &domain.LocatorError{
				Kind:   kind,
				Reason: fmt.Sprintf("byte range [%d,%d) outside section of %d bytes", start, end, total),
			}
		}

		first := sort.Search(len(lines), func(i int) bool { return offsets[i+1] > start })
		last := sort.Search(len(lines), func(i int) bool { return offsets[i+1] > end-1 })

		if len(path) > 0 {
			return domain.HeadingLocator{
				Path:      path,
				StartLine: srcLines[first],
				EndLine:   srcLines[last],
			}, nil
		}
		return domain.LineLocator{
			StartLine: srcLines[first],
			EndLine:   srcLines[last],
		}, nil
	}
}
