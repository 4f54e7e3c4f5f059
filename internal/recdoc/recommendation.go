package recdoc

import "strings"

// Recommendation is one directive clinical statement extracted from a
// guideline.
type Recommendation struct {
	Text          string `json:"recommendation_text"`
	Strength      string `json:"strength_raw"`
	Evidence      string `json:"evidence_raw"`
	SourceSnippet string `json:"source_snippet"`
	SectionLabel  string `json:"section_label,omitempty"`
	DisplayIndex  int    `json:"display_index,omitempty"`
}

// Key is the case-insensitive dedup key over text, strength and evidence.
func (r Recommendation) Key() string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(r.Text) + "\x1f" + norm(r.Strength) + "\x1f" + norm(r.Evidence)
}

// Accumulator folds extracted recommendations into one ordered list,
// keeping the first occurrence of each key.
type Accumulator struct {
	seen  map[string]bool
	items []Recommendation
}

func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]bool)}
}

// Add appends r unless its key was already seen or its text is blank.
// It reports whether r was kept.
func (a *Accumulator) Add(r Recommendation) bool {
	if strings.TrimSpace(r.Text) == "" {
		return false
	}
	k := r.Key()
	if a.seen[k] {
		return false
	}
	a.seen[k] = true
	a.items = append(a.items, r)
	return true
}

func (a *Accumulator) Len() int { return len(a.items) }

// Items returns the accumulated list with DisplayIndex set to each item's
// 1-based position.
func (a *Accumulator) Items() []Recommendation {
	out := make([]Recommendation, len(a.items))
	for i, r := range a.items {
		r.DisplayIndex = i + 1
		out[i] = r
	}
	return out
}
