package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LocatorKind tags a locator variant.
type LocatorKind string

// The closed set of locator kinds. Adding a kind is a deliberate schema
// change: DecodeLocator, the validators and the store round-trip tests
// move together.
const (
	LocatorHeading   LocatorKind = "heading"
	LocatorPage      LocatorKind = "page"
	LocatorParagraph LocatorKind = "paragraph"
	LocatorSheet     LocatorKind = "sheet"
	LocatorSection   LocatorKind = "section"
	LocatorLine      LocatorKind = "line"
)

// Locator pins a chunk to a sub-range of its source document so a
// result can cite exactly where its content came from. A locator never
// means "the whole document"; it always names a narrower position.
//
// The variant set is closed. Every implementation lives in this file
// and is marshalled as a (kind, JSON payload) pair.
type Locator interface {
	// Kind returns the variant tag.
	Kind() LocatorKind

	// Validate checks the variant's range invariants.
	Validate() error

	// String renders a human-readable citation fragment.
	String() string

	// sealed keeps the variant set closed to this package.
	sealed()
}

// HeadingLocator cites content under a heading path (titles from root
// to leaf), with an optional line sub-range beneath the leaf heading.
type HeadingLocator struct {
	// Path is the ordered list of heading titles, root to leaf.
	Path []string `json:"path"`

	// StartLine and EndLine bound the cited lines within the source
	// file, 1-based inclusive. Both zero means the range is absent and
	// the citation is the heading's whole extent.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

func (l HeadingLocator) Kind() LocatorKind { return LocatorHeading }
func (l HeadingLocator) sealed()           {}

func (l HeadingLocator) Validate() error {
	if len(l.Path) == 0 {
		return &LocatorError{Kind: LocatorHeading, Reason: "empty heading path"}
	}
	for _, title := range l.Path {
		if strings.TrimSpace(title) == "" {
			return &LocatorError{Kind: LocatorHeading, Reason: "blank title in heading path"}
		}
	}
	if l.StartLine == 0 && l.EndLine == 0 {
		return nil
	}
	return validateLineRange(LocatorHeading, l.StartLine, l.EndLine)
}

func (l HeadingLocator) String() string {
	s := strings.Join(l.Path, " > ")
	if l.StartLine > 0 {
		s += " (" + formatRange("line", l.StartLine, l.EndLine) + ")"
	}
	return s
}

// PageLocator cites a page, optionally narrowed to a paragraph range on
// that page.
type PageLocator struct {
	// Page is the 1-based page number.
	Page int `json:"page"`

	// ParaStart and ParaEnd bound the cited paragraphs on the page,
	// 1-based inclusive. Both zero means the whole page.
	ParaStart int `json:"para_start,omitempty"`
	ParaEnd   int `json:"para_end,omitempty"`
}

func (l PageLocator) Kind() LocatorKind { return LocatorPage }
func (l PageLocator) sealed()           {}

func (l PageLocator) Validate() error {
	if l.Page < 1 {
		return &LocatorError{Kind: LocatorPage, Reason: fmt.Sprintf("page %d out of range", l.Page)}
	}
	if l.ParaStart == 0 && l.ParaEnd == 0 {
		return nil
	}
	if l.ParaStart < 1 || l.ParaEnd < l.ParaStart {
		return &LocatorError{
			Kind:   LocatorPage,
			Reason: fmt.Sprintf("paragraph range %d-%d out of order", l.ParaStart, l.ParaEnd),
		}
	}
	return nil
}

func (l PageLocator) String() string {
	s := fmt.Sprintf("page %d", l.Page)
	if l.ParaStart > 0 {
		s += ", " + formatRange("paragraph", l.ParaStart, l.ParaEnd)
	}
	return s
}

// ParagraphLocator cites a 1-based inclusive paragraph range.
type ParagraphLocator struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (l ParagraphLocator) Kind() LocatorKind { return LocatorParagraph }
func (l ParagraphLocator) sealed()           {}

func (l ParagraphLocator) Validate() error {
	if l.Start < 1 || l.End < l.Start {
		return &LocatorError{
			Kind:   LocatorParagraph,
			Reason: fmt.Sprintf("paragraph range %d-%d out of order", l.Start, l.End),
		}
	}
	return nil
}

func (l ParagraphLocator) String() string {
	return formatRange("paragraph", l.Start, l.End)
}

// SheetLocator cites a cell range on a named sheet.
type SheetLocator struct {
	// Sheet is the sheet (tab) name.
	Sheet string `json:"sheet"`

	// CellRange is the cited range in A1 notation, e.g. "A1:C10".
	CellRange string `json:"cell_range"`
}

func (l SheetLocator) Kind() LocatorKind { return LocatorSheet }
func (l SheetLocator) sealed()           {}

func (l SheetLocator) Validate() error {
	if strings.TrimSpace(l.Sheet) == "" {
		return &LocatorError{Kind: LocatorSheet, Reason: "empty sheet name"}
	}
	if strings.TrimSpace(l.CellRange) == "" {
		return &LocatorError{Kind: LocatorSheet, Reason: "empty cell range"}
	}
	return nil
}

func (l SheetLocator) String() string {
	return l.Sheet + "!" + l.CellRange
}

// SectionLocator cites a section by identifier, with an optional title.
type SectionLocator struct {
	// ID is the section identifier, e.g. "2.1".
	ID string `json:"id"`

	// Title is the section title when known.
	Title string `json:"title,omitempty"`
}

func (l SectionLocator) Kind() LocatorKind { return LocatorSection }
func (l SectionLocator) sealed()           {}

func (l SectionLocator) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return &LocatorError{Kind: LocatorSection, Reason: "empty section id"}
	}
	return nil
}

func (l SectionLocator) String() string {
	if l.Title == "" {
		return "§" + l.ID
	}
	return "§" + l.ID + " " + l.Title
}

// LineLocator cites a 1-based inclusive line range.
type LineLocator struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

func (l LineLocator) Kind() LocatorKind { return LocatorLine }
func (l LineLocator) sealed()           {}

func (l LineLocator) Validate() error {
	return validateLineRange(LocatorLine, l.StartLine, l.EndLine)
}

func (l LineLocator) String() string {
	return formatRange("line", l.StartLine, l.EndLine)
}

// EncodeLocator validates l and serializes it as a (kind, payload) pair
// for storage.
func EncodeLocator(l Locator) (LocatorKind, []byte, error) {
	if l == nil {
		return "", nil, &LocatorError{Reason: "nil locator"}
	}
	if err := l.Validate(); err != nil {
		return "", nil, err
	}
	payload, err := json.Marshal(l)
	if err != nil {
		return "", nil, &LocatorError{Kind: l.Kind(), Reason: "marshal failed", Err: err}
	}
	return l.Kind(), payload, nil
}

// DecodeLocator reconstructs a locator from its stored (kind, payload)
// pair. Unknown kinds and payloads that fail validation are rejected
// with a *LocatorError.
func DecodeLocator(kind LocatorKind, payload []byte) (Locator, error) {
	var l Locator
	switch kind {
	case LocatorHeading:
		var v HeadingLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	case LocatorPage:
		var v PageLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	case LocatorParagraph:
		var v ParagraphLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	case LocatorSheet:
		var v SheetLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	case LocatorSection:
		var v SectionLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	case LocatorLine:
		var v LineLocator
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, &LocatorError{Kind: kind, Reason: "malformed payload", Err: err}
		}
		l = v
	default:
		return nil, &LocatorError{Kind: kind, Reason: "unknown locator kind"}
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func validateLineRange(kind LocatorKind, start, end int) error {
	if start < 1 || end < start {
		return &LocatorError{
			Kind:   kind,
			Reason: fmt.Sprintf("line range %d-%d out of order", start, end),
		}
	}
	return nil
}

// formatRange renders "line 4" or "lines 4-9".
func formatRange(unit string, start, end int) string {
	if start == end {
		return fmt.Sprintf("%s %d", unit, start)
	}
	return fmt.Sprintf("%ss %d-%d", unit, start, end)
}
