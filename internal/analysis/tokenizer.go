// Package analysis provides the tokenization pipeline shared by the index
// writer and the query evaluator.
//
// Both sides MUST produce identical terms for identical input text; any
// drift between them silently breaks retrieval. This is the only place in
// the codebase that turns raw text into index terms.
package analysis

import (
	"regexp"
	"strings"

	snowballeng "github.com/kljensen/snowball/english"
)

// nonAlnumRegex is compiled once at package initialization; it matches every
// rune outside [A-Za-z0-9] and whitespace.
var nonAlnumRegex = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Tokenize breaks text into normalized, stemmed terms.
//
// Processing steps:
//  1. case-fold to lower
//  2. replace every non-alphanumeric, non-whitespace rune with a space
//  3. split on whitespace
//  4. Porter-stem each word, dropping empty results
//
// The returned slice preserves the order of occurrence and may contain
// duplicates; callers that need frequencies count them.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(text)
	text = nonAlnumRegex.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	terms := make([]string, 0, len(words))
	for _, word := range words {
		stemmed := snowballeng.Stem(word, false)
		if stemmed == "" {
			continue
		}
		terms = append(terms, stemmed)
	}
	return terms
}
