package extractor

import (
	"sort"
	"strings"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// classify picks the category whose longest matching term is longest.
// Ties go to the category with more matching terms, then to rule order.
func (c *compiled) classify(norm string) domain.SectionType {
	best := domain.SectionGeneral
	bestLen, bestCount := 0, 0

	for _, cat := range c.categories {
		longest, count := 0, 0
		for _, term := range cat.terms {
			if textnorm.HasWordPrefix(norm, term) {
				count++
				if len(term) > longest {
					longest = len(term)
				}
			}
		}
		if count == 0 {
			continue
		}
		if longest > bestLen || (longest == bestLen && count > bestCount) {
			best = domain.SectionType(cat.name)
			bestLen, bestCount = longest, count
		}
	}
	return best
}

// keywords returns the sorted canonical keywords whose surface forms occur.
func (c *compiled) keywords(norm string) []string {
	return matchGroups(c.synonyms, norm)
}

func matchGroups(groups []termGroup, norm string) []string {
	var out []string
	for _, g := range groups {
		for _, term := range g.terms {
			if textnorm.HasWordPrefix(norm, term) {
				out = append(out, g.name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Title derives a short label from the section type and content.
func Title(content string, t domain.SectionType) string {
	norm := textnorm.Normalise(content)
	switch t {
	case domain.SectionPaper:
		if textnorm.HasWordPrefix(norm, "carregar") {
			return "Como Carregar Papel"
		}
		return "Configuração de Papel"
	case domain.SectionCartridges:
		if textnorm.HasWordPrefix(norm, "trocar") {
			return "Como Trocar Cartuchos"
		}
		return "Gerenciamento de Cartuchos"
	case domain.SectionConnectivity:
		return "Configuração de Rede"
	case domain.SectionTroubleshooting:
		return "Solução de Problemas"
	}

	words := strings.Fields(content)
	if len(words) > 8 {
		words = words[:8]
	}
	return "Seção: " + truncateRunes(strings.Join(words, " "), 50) + "..."
}

// Detection is the hardware profile inferred from manual text.
type Detection struct {
	Features []domain.Feature
	Color    domain.ColorType
}

// detect infers feature tags and colour capability from normalised text.
// Mono is chosen when mono terms are at least as frequent as colour terms;
// with no evidence at all the printer is assumed to be colour.
func (c *compiled) detect(norm string) Detection {
	var d Detection
	for _, name := range matchGroups(c.features, norm) {
		d.Features = append(d.Features, domain.Feature(name))
	}

	colorCount, monoCount := 0, 0
	for _, term := range c.color {
		colorCount += textnorm.CountWordPrefix(norm, term)
	}
	for _, term := range c.mono {
		monoCount += textnorm.CountWordPrefix(norm, term)
	}

	switch {
	case colorCount > monoCount:
		d.Color = domain.ColorColor
	case monoCount > 0:
		d.Color = domain.ColorMono
	default:
		d.Color = domain.ColorColor
	}
	return d
}
