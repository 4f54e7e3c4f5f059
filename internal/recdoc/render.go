package recdoc

import (
	"fmt"
	"sort"
	"strings"
)

const (
	docHeading      = "## Recommendations"
	noneFoundNotice = "_No recommendations found._"
)

// Render emits the numbered recommendations document. Each item's
// DisplayIndex is its 1-based position in recs; items are grouped by
// SectionLabel in taxonomy order, with unknown labels sorted after.
func Render(recs []Recommendation, title string, tax *Taxonomy) string {
	if tax == nil {
		tax = NewTaxonomy(nil)
	}

	var b strings.Builder
	b.WriteString(docHeading)
	if t := strings.Join(strings.Fields(title), " "); t != "" {
		b.WriteString(": ")
		b.WriteString(t)
	}
	b.WriteString("\n\n")

	if len(recs) == 0 {
		b.WriteString(noneFoundNotice)
		return b.String()
	}

	groups := make(map[string][]Recommendation)
	var labels []string
	for i, r := range recs {
		r.DisplayIndex = i + 1
		label := tax.Canonical(r.SectionLabel)
		if label == "" {
			label = Other
		}
		if _, ok := groups[label]; !ok {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], r)
	}

	sort.SliceStable(labels, func(i, j int) bool {
		ri, iok := tax.Rank(labels[i])
		rj, jok := tax.Rank(labels[j])
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		li, lj := strings.ToLower(labels[i]), strings.ToLower(labels[j])
		if li != lj {
			return li < lj
		}
		return labels[i] < labels[j]
	})

	for gi, label := range labels {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### ")
		b.WriteString(label)
		b.WriteString("\n")
		for _, r := range groups[label] {
			b.WriteString(recLineText(r))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func recLineText(r Recommendation) string {
	line := fmt.Sprintf("- **Rec %d.** %s", r.DisplayIndex, strings.Join(strings.Fields(r.Text), " "))
	var grades []string
	if s := strings.TrimSpace(r.Strength); s != "" {
		grades = append(grades, "Strength: "+s)
	}
	if e := strings.TrimSpace(r.Evidence); e != "" {
		grades = append(grades, "Evidence: "+e)
	}
	if len(grades) > 0 {
		line += " (" + strings.Join(grades, "; ") + ")"
	}
	return line
}
