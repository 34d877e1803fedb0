package embedding

import (
	"strings"

	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// Family groups embedding models that share an input convention.
type Family int

const (
	// FamilyStandard models embed text as given.
	FamilyStandard Family = iota

	// FamilyE5 models expect "query: " and "passage: " prefixes.
	FamilyE5

	// FamilyBGE models are used with the same prefixes as E5.
	FamilyBGE
)

// Prefixes applied by asymmetric model families.
const (
	QueryPrefix   = "query: "
	PassagePrefix = "passage: "
)

// FamilyOf returns the family of a model name.
func FamilyOf(model string) Family {
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "e5"):
		return FamilyE5
	case strings.Contains(name, "bge"):
		return FamilyBGE
	default:
		return FamilyStandard
	}
}

func (f Family) String() string {
	switch f {
	case FamilyE5:
		return "e5"
	case FamilyBGE:
		return "bge"
	default:
		return "standard"
	}
}

// Prefix returns the text prefix for the role.
func (f Family) Prefix(role driven.Role) string {
	if f == FamilyStandard {
		return ""
	}
	if role == driven.RoleQuery {
		return QueryPrefix
	}
	return PassagePrefix
}

// Apply prefixes each text for the role. The input is not modified.
func (f Family) Apply(texts []string, role driven.Role) []string {
	prefix := f.Prefix(role)
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = prefix + t
	}
	return out
}
