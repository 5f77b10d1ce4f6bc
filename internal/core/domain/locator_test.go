package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocator_RoundTrip tests encode/decode for every variant
func TestLocator_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		locator Locator
	}{
		{"heading with lines", HeadingLocator{Path: []string{"Setup", "Install"}, StartLine: 10, EndLine: 18}},
		{"heading without lines", HeadingLocator{Path: []string{"Overview"}}},
		{"page", PageLocator{Page: 3}},
		{"page with paragraphs", PageLocator{Page: 3, ParaStart: 2, ParaEnd: 4}},
		{"paragraph range", ParagraphLocator{Start: 2, End: 4}},
		{"single paragraph", ParagraphLocator{Start: 7, End: 7}},
		{"sheet", SheetLocator{Sheet: "Q3", CellRange: "A1:C10"}},
		{"section with title", SectionLocator{ID: "2.1", Title: "Scope"}},
		{"section without title", SectionLocator{ID: "4"}},
		{"line range", LineLocator{StartLine: 4, EndLine: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, payload, err := EncodeLocator(tt.locator)
			require.NoError(t, err)
			assert.Equal(t, tt.locator.Kind(), kind)

			decoded, err := DecodeLocator(kind, payload)
			require.NoError(t, err)
			assert.Equal(t, tt.locator, decoded)
		})
	}
}

// TestDecodeLocator_UnknownKind tests rejection of kinds outside the closed set
func TestDecodeLocator_UnknownKind(t *testing.T) {
	_, err := DecodeLocator("timestamp", []byte(`{"at":12}`))
	require.Error(t, err)

	var locErr *LocatorError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, LocatorKind("timestamp"), locErr.Kind)
}

// TestDecodeLocator_MalformedPayload tests rejection of broken JSON
func TestDecodeLocator_MalformedPayload(t *testing.T) {
	_, err := DecodeLocator(LocatorLine, []byte(`{"start_line":`))
	require.Error(t, err)

	var locErr *LocatorError
	assert.ErrorAs(t, err, &locErr)
}

// TestLocator_Validate tests range invariants per variant
func TestLocator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		locator Locator
		wantErr bool
	}{
		{"valid heading", HeadingLocator{Path: []string{"A"}, StartLine: 1, EndLine: 1}, false},
		{"empty heading path", HeadingLocator{Path: nil}, true},
		{"blank heading title", HeadingLocator{Path: []string{"A", "  "}}, true},
		{"heading end before start", HeadingLocator{Path: []string{"A"}, StartLine: 9, EndLine: 4}, true},
		{"heading start only", HeadingLocator{Path: []string{"A"}, StartLine: 3}, true},
		{"page zero", PageLocator{Page: 0}, true},
		{"page paragraph out of order", PageLocator{Page: 1, ParaStart: 5, ParaEnd: 2}, true},
		{"paragraph zero start", ParagraphLocator{Start: 0, End: 2}, true},
		{"paragraph end before start", ParagraphLocator{Start: 4, End: 2}, true},
		{"sheet without name", SheetLocator{Sheet: " ", CellRange: "A1:B2"}, true},
		{"sheet without range", SheetLocator{Sheet: "Data", CellRange: ""}, true},
		{"section without id", SectionLocator{ID: ""}, true},
		{"line zero start", LineLocator{StartLine: 0, EndLine: 3}, true},
		{"line end before start", LineLocator{StartLine: 8, EndLine: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.locator.Validate()
			if tt.wantErr {
				var locErr *LocatorError
				require.Error(t, err)
				assert.ErrorAs(t, err, &locErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestEncodeLocator_InvalidRejected tests that encode refuses bad locators
func TestEncodeLocator_InvalidRejected(t *testing.T) {
	_, _, err := EncodeLocator(LineLocator{StartLine: 0, EndLine: 0})
	require.Error(t, err)

	_, _, err = EncodeLocator(nil)
	require.Error(t, err)
}

// TestLocator_String tests the human-readable citations
func TestLocator_String(t *testing.T) {
	tests := []struct {
		locator Locator
		want    string
	}{
		{HeadingLocator{Path: []string{"Setup", "Install"}, StartLine: 10, EndLine: 18}, "Setup > Install (lines 10-18)"},
		{HeadingLocator{Path: []string{"Overview"}}, "Overview"},
		{PageLocator{Page: 3}, "page 3"},
		{PageLocator{Page: 3, ParaStart: 2, ParaEnd: 4}, "page 3, paragraphs 2-4"},
		{ParagraphLocator{Start: 2, End: 4}, "paragraphs 2-4"},
		{ParagraphLocator{Start: 7, End: 7}, "paragraph 7"},
		{SheetLocator{Sheet: "Q3", CellRange: "A1:C10"}, "Q3!A1:C10"},
		{SectionLocator{ID: "2.1", Title: "Scope"}, "§2.1 Scope"},
		{SectionLocator{ID: "4"}, "§4"},
		{LineLocator{StartLine: 4, EndLine: 9}, "lines 4-9"},
		{LineLocator{StartLine: 4, EndLine: 4}, "line 4"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.locator.String())
		})
	}
}
