// Package queryparse turns raw query strings into domain queries.
//
// The grammar, informally:
//
//	query     = item*
//	item      = phrase | exclusion | filter | term
//	phrase    = '"' any* '"'
//	exclusion = '-' bare-word
//	filter    = key ':' (bare-word | phrase)
//	key       = project | type | lang | after | before
//
// Malformed input is rejected with a *domain.QueryParseError pointing
// at the offending fragment; nothing is silently dropped.
package queryparse

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/loci-labs/loci/internal/core/domain"
)

// filterKeys is the closed set of recognized filter keys.
var filterKeys = map[string]bool{
	"project": true,
	"type":    true,
	"lang":    true,
	"after":   true,
	"before":  true,
}

// Parse converts a raw query string into a domain.Query. The empty
// (or all-whitespace) string is invalid; a query carrying only filters
// is valid.
func Parse(raw string) (domain.Query, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Query{}, &domain.QueryParseError{Reason: "empty query"}
	}

	q := domain.Query{Raw: raw}
	seenKeys := make(map[string]bool)

	i := 0
	for i < len(raw) {
		r, size := utf8.DecodeRuneInString(raw[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '"':
			phrase, next, err := scanQuoted(raw, i)
			if err != nil {
				return domain.Query{}, err
			}
			if strings.TrimSpace(phrase) == "" {
				return domain.Query{}, &domain.QueryParseError{
					Fragment: raw[i:next], Pos: i, Reason: "empty phrase",
				}
			}
			q.Phrases = append(q.Phrases, phrase)
			i = next

		case r == '-':
			start := i
			i += size
			if i >= len(raw) || isSpaceAt(raw, i) {
				return domain.Query{}, &domain.QueryParseError{
					Fragment: "-", Pos: start, Reason: "dangling exclusion dash",
				}
			}
			if raw[i] == '"' {
				return domain.Query{}, &domain.QueryParseError{
					Fragment: raw[start : start+2], Pos: start,
					Reason: "exclusions take a bare term, not a phrase",
				}
			}
			word, next := scanWord(raw, i)
			q.Excludes = append(q.Excludes, strings.ToLower(word))
			i = next

		default:
			start := i
			word, next := scanWord(raw, i)
			handled, err := applyFilter(&q, seenKeys, raw, start, word, &next)
			if err != nil {
				return domain.Query{}, err
			}
			if !handled {
				q.Terms = append(q.Terms, strings.ToLower(word))
			}
			i = next
		}
	}

	return q, nil
}

// applyFilter handles a scanned word that may be a key:value filter.
// Words whose key part is not purely alphabetic stay ordinary terms,
// so things like "10:30" search instead of erroring.
func applyFilter(q *domain.Query, seen map[string]bool, raw string, start int, word string, next *int) (bool, error) {
	colon := strings.IndexByte(word, ':')
	if colon <= 0 {
		return false, nil
	}
	key := strings.ToLower(word[:colon])
	if !alphabetic(key) {
		return false, nil
	}
	if !filterKeys[key] {
		return false, &domain.QueryParseError{
			Fragment: word, Pos: start,
			Reason: fmt.Sprintf("unknown filter key %q", key),
		}
	}
	if seen[key] {
		return false, &domain.QueryParseError{
			Fragment: word, Pos: start,
			Reason: fmt.Sprintf("duplicate %s: filter", key),
		}
	}

	value := word[colon+1:]
	if value == "" {
		// A quoted value follows the colon directly: project:"my vault".
		if *next < len(raw) && raw[*next] == '"' {
			quoted, end, err := scanQuoted(raw, *next)
			if err != nil {
				return false, err
			}
			value = quoted
			*next = end
		} else {
			return false, &domain.QueryParseError{
				Fragment: word, Pos: start,
				Reason: fmt.Sprintf("filter %s: needs a value", key),
			}
		}
	}

	if err := setFilter(q, key, value, word, start); err != nil {
		return false, err
	}
	seen[key] = true
	return true, nil
}

func setFilter(q *domain.Query, key, value, fragment string, pos int) error {
	switch key {
	case "project":
		q.Filters.Projects = append(q.Filters.Projects, value)
	case "type":
		st, err := domain.ParseSourceType(strings.ToLower(value))
		if err != nil {
			return &domain.QueryParseError{
				Fragment: fragment, Pos: pos,
				Reason: fmt.Sprintf("unknown source type %q", value),
			}
		}
		q.Filters.SourceTypes = append(q.Filters.SourceTypes, st)
	case "lang":
		q.Filters.Languages = append(q.Filters.Languages, strings.ToLower(value))
	case "after", "before":
		day, err := time.Parse("2006-01-02", value)
		if err != nil {
			return &domain.QueryParseError{
				Fragment: fragment, Pos: pos,
				Reason: fmt.Sprintf("date %q is not YYYY-MM-DD", value),
			}
		}
		day = day.UTC()
		if key == "after" {
			q.Filters.After = &day
		} else {
			q.Filters.Before = &day
		}
	}
	return nil
}

// scanQuoted reads a double-quoted run starting at the opening quote.
// It returns the unquoted content and the index just past the closing
// quote.
func scanQuoted(raw string, start int) (string, int, error) {
	end := strings.IndexByte(raw[start+1:], '"')
	if end < 0 {
		return "", 0, &domain.QueryParseError{
			Fragment: raw[start:], Pos: start, Reason: "unterminated phrase",
		}
	}
	content := raw[start+1 : start+1+end]
	return content, start + end + 2, nil
}

// scanWord reads a run of non-space runes, stopping before a quote so
// adjacent phrases stay separate tokens.
func scanWord(raw string, start int) (string, int) {
	i := start
	for i < len(raw) {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if unicode.IsSpace(r) || r == '"' {
			break
		}
		i += size
	}
	return raw[start:i], i
}

func isSpaceAt(raw string, i int) bool {
	r, _ := utf8.DecodeRuneInString(raw[i:])
	return unicode.IsSpace(r)
}

func alphabetic(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(s) > 0
}
