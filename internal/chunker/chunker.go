package chunker

import (
	"regexp"
	"strings"

	"github.com/dgallion1/recgest/internal/doctree"
)

// Sectionize splits markdown into sections keyed by full heading path.
// Every non-blank line lands in exactly one section, in document order.
func Sectionize(markdown string) []doctree.Section {
	text := strings.TrimSpace(normalizeNewlines(markdown))
	if text == "" {
		return nil
	}

	var (
		sections []doctree.Section
		stack    []string
		buf      []string
		path     = doctree.NoHeadingPath
		level    = 0
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if content == "" {
			return
		}
		sections = append(sections, doctree.Section{
			Index:   len(sections) + 1,
			Path:    path,
			Level:   level,
			Content: content,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		lvl, title, ok := parseHeading(line)
		if !ok {
			buf = append(buf, line)
			continue
		}
		flush()
		// Pop to lvl-1 entries so level skips still yield a well-formed path.
		if len(stack) > lvl-1 {
			stack = stack[:lvl-1]
		}
		stack = append(stack, title)
		path = joinPath(stack)
		level = lvl
		buf = append(buf, line)
	}
	flush()

	return sections
}

var closingHashes = regexp.MustCompile(`\s+#+\s*$`)

// parseHeading reports whether line is a heading, and its level and text.
func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 {
		return 0, "", false
	}
	title := closingHashes.ReplaceAllString(trimmed[n:], "")
	return n, strings.TrimSpace(title), true
}

func joinPath(stack []string) string {
	parts := make([]string, 0, len(stack))
	for _, s := range stack {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return doctree.NoHeadingPath
	}
	return strings.Join(parts, doctree.PathSeparator)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Split cuts text into windows of maxChars characters that overlap by
// overlapChars. Text within budget comes back as a single trimmed part.
func Split(text string, maxChars, overlapChars int) []string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{strings.TrimSpace(text)}
	}

	step := maxChars - overlapChars
	if overlapChars < 0 || step <= 0 {
		step = maxChars
	}

	var parts []string
	for start := 0; ; start += step {
		end := min(start+maxChars, len(runes))
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, part)
		}
		if end >= len(runes) {
			break
		}
	}
	return parts
}

// SplitSection splits a section's content into extraction-sized parts.
func SplitSection(sec doctree.Section, maxChars, overlapChars int) []doctree.SectionPart {
	texts := Split(sec.Content, maxChars, overlapChars)
	parts := make([]doctree.SectionPart, 0, len(texts))
	for i, t := range texts {
		parts = append(parts, doctree.SectionPart{
			SectionIndex: sec.Index,
			Path:         sec.Path,
			PartIndex:    i + 1,
			PartCount:    len(texts),
			Text:         t,
		})
	}
	return parts
}

// Clip shortens s to at most n characters, marking the cut with an ellipsis.
func Clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return strings.TrimRight(string(r[:n-1]), " \t\n") + "…"
}
