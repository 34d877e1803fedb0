package extractor

import "unicode/utf8"

// chunkPages accumulates lines greedily across pages. A chunk is closed
// when the next line would push it past target runes; chunks of minSize
// runes or fewer are dropped, including the trailing remainder.
func chunkPages(pages []string, target, minSize int) []string {
	var chunks []string
	current := ""

	flush := func() {
		if utf8.RuneCountInString(current) > minSize {
			chunks = append(chunks, current)
		}
	}

	for _, page := range pages {
		for _, line := range pageLines(page) {
			if utf8.RuneCountInString(current)+utf8.RuneCountInString(line) > target {
				flush()
				current = line + " "
				continue
			}
			current = joinHyphenated(current, line)
		}
	}
	flush()

	return chunks
}
