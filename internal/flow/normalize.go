// Package flow implements the conversational flow interpreter for FlowDesk.
//
// It loads an immutable flow definition, tracks per-user conversation state
// through a store.Store, and advances users through the graph one message at
// a time.
package flow

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer decomposes accented characters and strips the combining marks.
var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips diacritics, lower-cases, and trims surrounding whitespace.
// It is pure and total: inputs that cannot be transformed are passed through
// with only case-folding and trimming applied.
func Normalize(text string) string {
	stripped, _, err := transform.String(normalizer, text)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
