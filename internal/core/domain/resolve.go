package domain

// MatchKind describes how a printer model was matched from free text.
type MatchKind string

const (
	MatchExactAlias   MatchKind = "exact_alias"
	MatchFuzzy        MatchKind = "fuzzy"
	MatchPartialToken MatchKind = "partial_token"
)

// Candidate is one printer model proposed for a piece of free text.
type Candidate struct {
	ModelID    string
	Confidence float64
	Kind       MatchKind
}

// Resolution is the outcome of resolving free text against the registry.
type Resolution struct {
	// Candidates are ordered by confidence, highest first.
	Candidates []Candidate

	// Proposed is a synthesised registry entry for an unknown model
	// number found in the text. It is not persisted by the resolver.
	Proposed *PrinterModel
}

// Best returns the top candidate, if any.
func (r Resolution) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Plausible returns the candidates at or above the confidence threshold.
func (r Resolution) Plausible(threshold float64) []Candidate {
	var out []Candidate
	for _, c := range r.Candidates {
		if c.Confidence >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Unique returns the single exact alias match when exactly one exists.
func (r Resolution) Unique() (string, bool) {
	var id string
	for _, c := range r.Candidates {
		if c.Kind != MatchExactAlias {
			continue
		}
		if id != "" {
			return "", false
		}
		id = c.ModelID
	}
	return id, id != ""
}
