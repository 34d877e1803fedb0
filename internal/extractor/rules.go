package extractor

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

//go:embed rules.toml
var defaultRulesTOML []byte

// CategoryRule maps a section type to the terms that select it.
type CategoryRule struct {
	Type  domain.SectionType `toml:"type"`
	Terms []string           `toml:"terms"`
}

// ColorRule lists the terms counted by colour detection.
type ColorRule struct {
	Color []string `toml:"color"`
	Mono  []string `toml:"mono"`
}

// Rules is the data that drives classification, keyword extraction and
// feature detection. It is loaded from TOML so the vocabulary can grow
// without code changes.
type Rules struct {
	Categories []CategoryRule      `toml:"category"`
	Synonyms   map[string][]string `toml:"synonyms"`
	Features   map[string][]string `toml:"features"`
	Color      ColorRule           `toml:"color"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRulesTOML)
	if err != nil {
		panic(fmt.Sprintf("extractor: invalid built-in rules: %v", err))
	}
	return r
}

// ParseRules decodes rules from TOML and validates category types.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for _, c := range r.Categories {
		if _, err := domain.ParseSectionType(string(c.Type)); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// LoadRules reads a rules file and merges it over the built-in rules.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	extra, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	base := DefaultRules()
	base.Merge(extra)
	return base, nil
}

// Merge adds the terms of other. Categories of a type already present get
// the extra terms appended; new types are added after the existing ones.
func (r *Rules) Merge(other *Rules) {
	for _, oc := range other.Categories {
		found := false
		for i := range r.Categories {
			if r.Categories[i].Type == oc.Type {
				r.Categories[i].Terms = append(r.Categories[i].Terms, oc.Terms...)
				found = true
				break
			}
		}
		if !found {
			r.Categories = append(r.Categories, oc)
		}
	}
	r.Synonyms = mergeTable(r.Synonyms, other.Synonyms)
	r.Features = mergeTable(r.Features, other.Features)
	r.Color.Color = append(r.Color.Color, other.Color.Color...)
	r.Color.Mono = append(r.Color.Mono, other.Color.Mono...)
}

func mergeTable(dst, src map[string][]string) map[string][]string {
	if dst == nil {
		dst = make(map[string][]string, len(src))
	}
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
	return dst
}

// termGroup is a canonical name with its normalised surface forms.
type termGroup struct {
	name  string
	terms []string
}

// compiled holds normalised, deterministically ordered rules.
type compiled struct {
	categories []termGroup
	synonyms   []termGroup
	features   []termGroup
	color      []string
	mono       []string
}

func (r *Rules) compile() *compiled {
	c := &compiled{
		color: normaliseTerms(r.Color.Color),
		mono:  normaliseTerms(r.Color.Mono),
	}
	for _, cat := range r.Categories {
		c.categories = append(c.categories, termGroup{name: string(cat.Type), terms: normaliseTerms(cat.Terms)})
	}
	c.synonyms = compileTable(r.Synonyms)
	c.features = compileTable(r.Features)
	return c
}

func compileTable(table map[string][]string) []termGroup {
	names := make([]string, 0, len(table))
	for k := range table {
		names = append(names, k)
	}
	sort.Strings(names)

	groups := make([]termGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, termGroup{
			name:  textnorm.Normalise(name),
			terms: normaliseTerms(table[name]),
		})
	}
	return groups
}

func normaliseTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		n := textnorm.Normalise(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
