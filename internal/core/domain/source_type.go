package domain

import "fmt"

// SourceType classifies where a document came from. The set is closed:
// parsers, filters and the store reject values outside it.
type SourceType string

// Known source types.
const (
	SourceTypeMarkdown SourceType = "markdown"
	SourceTypePDF      SourceType = "pdf"
	SourceTypeWord     SourceType = "word"
	SourceTypeExcel    SourceType = "excel"
	SourceTypeRecipe   SourceType = "recipe"
	SourceTypeGit      SourceType = "git"
	SourceTypeText     SourceType = "text"
)

// AllSourceTypes returns the closed set in display order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeMarkdown,
		SourceTypePDF,
		SourceTypeWord,
		SourceTypeExcel,
		SourceTypeRecipe,
		SourceTypeGit,
		SourceTypeText,
	}
}

// IsValid reports whether t is a known source type.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeMarkdown, SourceTypePDF, SourceTypeWord,
		SourceTypeExcel, SourceTypeRecipe, SourceTypeGit, SourceTypeText:
		return true
	}
	return false
}

// String returns the wire value.
func (t SourceType) String() string {
	return string(t)
}

// ParseSourceType converts a string into a SourceType, rejecting
// anything outside the closed set.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, s)
	}
	return t, nil
}
