package domain

import (
	"fmt"
	"strings"
)

// SectionType is the coarse category of a manual section.
type SectionType string

const (
	// SectionTroubleshooting covers errors and problem solving.
	SectionTroubleshooting SectionType = "troubleshooting"
	// SectionPaper covers paper loading and trays.
	SectionPaper SectionType = "paper"
	// SectionCartridges covers ink, tanks and cartridges.
	SectionCartridges SectionType = "cartridges"
	// SectionConnectivity covers Wi-Fi and network setup.
	SectionConnectivity SectionType = "connectivity"
	// SectionSetup covers installation and configuration.
	SectionSetup SectionType = "setup"
	// SectionGeneral is the default when nothing more specific matches.
	SectionGeneral SectionType = "general"
)

// SectionTypes lists every section type in emission order.
var SectionTypes = []SectionType{
	SectionTroubleshooting,
	SectionPaper,
	SectionCartridges,
	SectionConnectivity,
	SectionSetup,
	SectionGeneral,
}

// ParseSectionType converts a string into a SectionType.
func ParseSectionType(s string) (SectionType, error) {
	t := SectionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SectionTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown section type %q", ErrInvalidInput, s)
}

// Section is one indexed chunk of manual text.
type Section struct {
	// ID is unique within a model and stable across extraction runs.
	// Format: {model}_{type}_{position}.
	ID string

	// Title is a short label derived from the type and leading content.
	Title string

	// Content is the cleaned section text, at most MaxSectionContent characters.
	Content string

	// Type is the section category.
	Type SectionType

	// Keywords are canonical domain terms found in the content, sorted.
	Keywords []string

	// PrinterModel is the registry ID this section belongs to.
	PrinterModel string

	// SourceHash is the MD5 hex digest of the originating PDF.
	SourceHash string
}

// MaxSectionContent is the maximum number of characters kept per section.
const MaxSectionContent = 800

// SectionID builds the stable identifier for a section.
func SectionID(model string, t SectionType, position int) string {
	return fmt.Sprintf("%s_%s_%d", model, t, position)
}

// IndexText returns the text that is embedded and stored for the section.
func (s Section) IndexText() string {
	if s.Title == "" {
		return s.Content
	}
	return s.Title + " " + s.Content
}

// Validate checks the fields required for indexing.
func (s Section) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: section id is required", ErrInvalidInput)
	}
	if s.PrinterModel == "" {
		return fmt.Errorf("%w: section %s has no printer model", ErrInvalidInput, s.ID)
	}
	return nil
}

// SectionHit is a store match with its cosine distance.
type SectionHit struct {
	Section  Section
	Distance float64
}

// Similarity converts the distance into a similarity in [0, 1].
func (h SectionHit) Similarity() float64 {
	sim := 1 - h.Distance
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
