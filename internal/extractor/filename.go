package extractor

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	impressoraName = regexp.MustCompile(`(?i)impressor[ao]?\s*_?\s*(l?\d{3,5}(?:_l?\d{3,5})?)`)
	bareModel      = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(l\d{3,5}(?:_l\d{3,5})?)(?:[^a-z0-9]|$)`)
)

// ModelFromFilename derives the canonical model ID from a manual file name,
// e.g. "impressoraL3150.pdf" gives "L3150" and "impressoral3250_l3251.pdf"
// gives "L3250_L3251". It returns "" when no model number is present.
func ModelFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	if m := impressoraName.FindStringSubmatch(stem); m != nil {
		return canonicalModel(m[1])
	}
	if m := bareModel.FindStringSubmatch(stem); m != nil {
		return canonicalModel(m[1])
	}
	return ""
}

// canonicalModel upper-cases each part and ensures the L prefix.
func canonicalModel(raw string) string {
	parts := strings.Split(strings.ToUpper(raw), "_")
	for i, p := range parts {
		if !strings.HasPrefix(p, "L") {
			parts[i] = "L" + p
		}
	}
	return strings.Join(parts, "_")
}
