package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Feature is a hardware capability tag of a printer model.
type Feature string

const (
	FeatureMultifunction Feature = "multifuncional"
	FeatureWiFi          Feature = "wifi"
	FeatureEcoTank       Feature = "ecotank"
	FeatureTank          Feature = "tanque"
	FeatureDuplex        Feature = "duplex"
	FeatureADF           Feature = "adf"
	FeatureFax           Feature = "fax"
	FeatureA3            Feature = "a3"
	FeatureEthernet      Feature = "ethernet"
	FeatureUSB           Feature = "usb"
	FeatureMobile        Feature = "mobile"
	FeatureCloud         Feature = "cloud"
)

// KnownFeatures lists every recognised feature tag.
var KnownFeatures = []Feature{
	FeatureMultifunction, FeatureWiFi, FeatureEcoTank, FeatureTank,
	FeatureDuplex, FeatureADF, FeatureFax, FeatureA3,
	FeatureEthernet, FeatureUSB, FeatureMobile, FeatureCloud,
}

// DefaultFeatures are assigned to synthesised registry entries.
var DefaultFeatures = []Feature{FeatureMultifunction, FeatureWiFi, FeatureEcoTank, FeatureTank}

// IsKnownFeature reports whether f is a recognised feature tag.
func IsKnownFeature(f Feature) bool {
	for _, k := range KnownFeatures {
		if k == f {
			return true
		}
	}
	return false
}

// ColorType is the print colour capability.
type ColorType string

const (
	ColorUnknown ColorType = ""
	ColorColor   ColorType = "colorida"
	ColorMono    ColorType = "monocromatica"
)

// SizeClass is the approximate physical footprint of a printer.
type SizeClass string

const (
	SizeUnknown SizeClass = ""
	SizeCompact SizeClass = "compacta"
	SizeLarge   SizeClass = "grande"
)

// PrinterModel is one entry of the printer model registry.
type PrinterModel struct {
	// ID is the canonical model identifier, e.g. "L3150".
	ID string `json:"id" toml:"id" yaml:"id"`

	// DisplayName is the human readable name, e.g. "Epson L3150".
	DisplayName string `json:"display_name" toml:"display_name" yaml:"display_name"`

	// Aliases are normalised alternative names (lowercase, no accents).
	Aliases []string `json:"aliases" toml:"aliases" yaml:"aliases"`

	// Features are the hardware capability tags.
	Features []Feature `json:"features" toml:"features" yaml:"features"`

	// Series is derived from the leading digit of the model number.
	Series string `json:"series" toml:"series" yaml:"series"`

	// Description is a one-line summary shown to users.
	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`

	// Color is the colour capability, empty when unknown.
	Color ColorType `json:"color,omitempty" toml:"color,omitempty" yaml:"color,omitempty"`

	// Size is the footprint class, empty when unknown.
	Size SizeClass `json:"size,omitempty" toml:"size,omitempty" yaml:"size,omitempty"`
}

// HasFeature reports whether the model declares f.
func (m PrinterModel) HasFeature(f Feature) bool {
	for _, have := range m.Features {
		if have == f {
			return true
		}
	}
	return false
}

// EffectiveSize returns the declared size, or infers it from features.
// Models with an ADF or A3 support are considered large.
func (m PrinterModel) EffectiveSize() SizeClass {
	if m.Size != SizeUnknown {
		return m.Size
	}
	if m.HasFeature(FeatureADF) || m.HasFeature(FeatureA3) {
		return SizeLarge
	}
	return SizeCompact
}

// Merge unions aliases and features from other into m.
// Scalar fields are only filled in when m leaves them empty.
func (m *PrinterModel) Merge(other PrinterModel) {
	m.Aliases = unionStrings(m.Aliases, other.Aliases)

	feats := make([]string, 0, len(m.Features)+len(other.Features))
	for _, f := range m.Features {
		feats = append(feats, string(f))
	}
	for _, f := range other.Features {
		feats = append(feats, string(f))
	}
	m.Features = make([]Feature, 0, len(feats))
	for _, f := range unionStrings(nil, feats) {
		m.Features = append(m.Features, Feature(f))
	}

	if m.DisplayName == "" {
		m.DisplayName = other.DisplayName
	}
	if m.Series == "" {
		m.Series = other.Series
	}
	if m.Description == "" {
		m.Description = other.Description
	}
	if m.Color == ColorUnknown {
		m.Color = other.Color
	}
	if m.Size == SizeUnknown {
		m.Size = other.Size
	}
}

// Canonicalise sorts and deduplicates aliases and features.
func (m *PrinterModel) Canonicalise() {
	m.Aliases = unionStrings(nil, m.Aliases)
	m.Merge(PrinterModel{})
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// The L must start a word, so "papel 500" carries no model number.
var modelNumberPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])l\s?(\d{3,5})(?:[^0-9]|$)`)

// ModelNumber extracts the numeric part of an L-series model identifier.
// It returns "" when the identifier carries no model number.
func ModelNumber(id string) string {
	m := modelNumberPattern.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	return m[1]
}

// SeriesFor derives the series from the leading digit of the model number.
// L3150 belongs to L3000 and L375 to L300.
func SeriesFor(id string) string {
	num := ModelNumber(id)
	if num == "" {
		return ""
	}
	return "L" + num[:1] + strings.Repeat("0", len(num)-1)
}
