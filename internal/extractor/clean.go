package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	pageMarker   = regexp.MustCompile(`(?im)^\s*-{2,}\s*p[aá]gina\s+\d+\s*-{2,}\s*$`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)
	spaceRuns    = regexp.MustCompile(`\s+`)
	caseBoundary = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
)

// Clean normalises extracted PDF text: page markers are stripped, blank
// lines and whitespace runs collapse to single spaces, and glued words
// such as "papelBandeja" are split.
func Clean(text string) string {
	text = pageMarker.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = blankLines.ReplaceAllString(text, "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = caseBoundary.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

// pageLines splits a page into trimmed, non-empty lines with page
// markers removed.
func pageLines(page string) []string {
	page = pageMarker.ReplaceAllString(page, "")
	page = strings.ReplaceAll(page, "\f", "\n")

	raw := strings.Split(page, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// joinHyphenated appends line to chunk, removing a trailing line-break
// hyphen when the next line continues the word in lowercase.
func joinHyphenated(chunk, line string) string {
	trimmed := strings.TrimRight(chunk, " ")
	if strings.HasSuffix(trimmed, "-") && len(trimmed) > 1 {
		before, _ := utf8.DecodeLastRuneInString(trimmed[:len(trimmed)-1])
		next, _ := utf8.DecodeRuneInString(line)
		if unicode.IsLetter(before) && unicode.IsLower(next) {
			return trimmed[:len(trimmed)-1] + line + " "
		}
	}
	return chunk + line + " "
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
