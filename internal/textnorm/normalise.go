// Package textnorm provides the text normalisation shared by the printer
// model resolver, the registry and the section extractor.
//
// The same normalisation is applied to stored aliases and to user input so
// that comparisons are symmetric.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)

// StripAccents removes combining marks after NFD decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalise lowercases, strips accents, replaces punctuation with spaces
// and collapses whitespace.
func Normalise(s string) string {
	s = strings.ToLower(StripAccents(s))
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the whitespace separated tokens of the normalised text.
func Tokens(s string) []string {
	return strings.Fields(Normalise(s))
}

// ContainsPhrase reports whether phrase occurs in text as a whole token
// sequence. Both arguments must already be normalised.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// HasWordPrefix reports whether phrase occurs in text starting at a token
// boundary. The last word of phrase may continue, so "cartucho" matches
// "cartuchos" while "head" does not match "ahead". Both arguments must
// already be normalised.
func HasWordPrefix(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text, " "+phrase)
}

// CountWordPrefix counts the occurrences matched by HasWordPrefix.
func CountWordPrefix(text, phrase string) int {
	if phrase == "" {
		return 0
	}
	return strings.Count(" "+text, " "+phrase)
}
