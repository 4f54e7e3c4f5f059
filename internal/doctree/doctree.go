package doctree

import "fmt"

// NoHeadingPath is the path assigned to content that precedes any heading.
const NoHeadingPath = "(no heading)"

// PathSeparator joins heading breadcrumbs into a section path.
const PathSeparator = " > "

// Section is a contiguous span of a markdown document under one heading path.
type Section struct {
	Index   int    // 1-based, assigned in document order
	Path    string // Heading breadcrumb, e.g. "Management > Antibiotics"
	Level   int    // Heading depth, 0 for NoHeadingPath
	Content string // Trimmed text including the heading line
}

// SectionPart is a budget-sized slice of a Section's content.
type SectionPart struct {
	SectionIndex int
	Path         string
	PartIndex    int // 1-based
	PartCount    int
	Text         string
}

// Label identifies the part in provenance strings.
func (p SectionPart) Label() string {
	if p.PartCount > 1 {
		return fmt.Sprintf("%s (part %d/%d)", p.Path, p.PartIndex, p.PartCount)
	}
	return p.Path
}
