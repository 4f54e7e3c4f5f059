package chunker

import (
	"regexp"
	"strings"
)

const (
	previewHeadChars = 900
	previewTailChars = 500
	previewMaxHints  = 12
	previewHintWidth = 220
)

var (
	directiveHint = regexp.MustCompile(`(?i)\b(should|must|recommend|recommends|recommended|recommendation|we suggest|suggested|avoid|do not|consider|is indicated|are indicated|is not recommended|contraindicated)\b`)
	gradingHint   = regexp.MustCompile(`(?i)\b(class\s+(i{1,3}|iv|[1-4]|[abc])|grade\b|grading|level of evidence|loe\b|strength of recommendation|certainty of evidence|strong recommendation|conditional recommendation|weak recommendation)`)
	labelHint     = regexp.MustCompile(`(?i)^\s*[-*•]?\s*(recommendation|statement|practice point|key recommendation|good practice)\b`)
)

// Preview builds a bounded summary of a section: its head, lines carrying
// directive or grading vocabulary, and its tail.
func Preview(text string) string {
	text = strings.TrimSpace(normalizeNewlines(text))
	runes := []rune(text)
	if len(runes) <= previewHeadChars {
		return text
	}

	head := string(runes[:previewHeadChars])
	var b strings.Builder
	b.WriteString(strings.TrimSpace(head))

	if hints := hintLines(text, head); len(hints) > 0 {
		b.WriteString("\n\nHINT LINES:")
		for _, h := range hints {
			b.WriteString("\n- ")
			b.WriteString(h)
		}
	}

	tailStart := max(previewHeadChars, len(runes)-previewTailChars)
	if tail := strings.TrimSpace(string(runes[tailStart:])); tail != "" && !strings.Contains(head, tail) {
		b.WriteString("\n\n…\n")
		b.WriteString(tail)
	}
	return b.String()
}

func hintLines(text, head string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !directiveHint.MatchString(line) && !gradingHint.MatchString(line) && !labelHint.MatchString(line) {
			continue
		}
		if strings.Contains(head, line) {
			continue
		}
		clipped := Clip(line, previewHintWidth)
		key := strings.ToLower(clipped)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, clipped)
		if len(out) >= previewMaxHints {
			break
		}
	}
	return out
}
