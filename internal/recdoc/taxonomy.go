package recdoc

import (
	"strings"

	"github.com/dgallion1/recgest/internal/chunker"
)

const (
	PossibleRepeats = "Possible repeats"
	Other           = "Other"

	maxLabelChars = 60
)

// DefaultLabels is the clinician-facing grouping order used when no
// taxonomy is configured.
var DefaultLabels = []string{
	"Screening & Prevention",
	"Diagnosis & Evaluation",
	"Labs",
	"Imaging",
	"Risk Stratification",
	"Initial Management",
	"Medications",
	"Procedures & Interventions",
	"Monitoring",
	"Disposition",
	"Follow-up",
	"Special Populations",
	"Patient Education",
	PossibleRepeats,
	Other,
}

// Taxonomy is an ordered, closed set of section labels.
type Taxonomy struct {
	labels []string
	rank   map[string]int
}

// NewTaxonomy builds a taxonomy from labels, dropping blanks and
// case-insensitive duplicates. PossibleRepeats and Other are appended
// when missing so every taxonomy has both buckets.
func NewTaxonomy(labels []string) *Taxonomy {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	t := &Taxonomy{rank: make(map[string]int)}
	add := func(l string) {
		l = cleanLabel(l)
		key := strings.ToLower(l)
		if l == "" {
			return
		}
		if _, ok := t.rank[key]; ok {
			return
		}
		t.rank[key] = len(t.labels)
		t.labels = append(t.labels, l)
	}
	for _, l := range labels {
		add(l)
	}
	add(PossibleRepeats)
	add(Other)
	return t
}

// Labels returns the labels in canonical order.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Canonical cleans a raw label and maps it onto the taxonomy's casing when
// it matches a known label. Unknown labels come back cleaned, and blank
// labels come back empty.
func (t *Taxonomy) Canonical(raw string) string {
	l := cleanLabel(raw)
	if l == "" {
		return ""
	}
	if i, ok := t.rank[strings.ToLower(l)]; ok {
		return t.labels[i]
	}
	return l
}

// Rank reports the label's position in the taxonomy.
func (t *Taxonomy) Rank(label string) (int, bool) {
	i, ok := t.rank[strings.ToLower(label)]
	return i, ok
}

func cleanLabel(raw string) string {
	l := strings.Join(strings.Fields(raw), " ")
	return chunker.Clip(l, maxLabelChars)
}
