// Package keyword implements the lexical half of hybrid retrieval:
// tokenization and BM25 relevance scoring over stored postings.
//
// Keyword scoring is fully independent of embeddings. It keeps working,
// exact and unchanged, when the embedding gateway is down.
package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize lowercases text and splits it into terms on any run of
// non-letter, non-digit runes. Single-rune terms are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// Counts tokenizes text and returns term frequencies plus the total
// term count including repeats. The total is what length
// normalization uses as the chunk length.
func Counts(text string) (map[string]int, int) {
	terms := Tokenize(text)
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts, len(terms)
}

// ContainsToken reports whether any token of text equals term,
// case-insensitively. Hard exclusions use token matching; substring
// matching would also exclude words that merely contain the term.
func ContainsToken(text, term string) bool {
	term = strings.ToLower(term)
	for _, t := range Tokenize(text) {
		if t == term {
			return true
		}
	}
	return false
}

// HasPhrase reports whether text contains phrase as a case-insensitive
// literal substring.
func HasPhrase(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}
