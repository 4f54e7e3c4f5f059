package recdoc

import (
	"regexp"
	"strconv"
	"strings"
)

// NoneRemainingNotice is appended once every recommendation line is gone.
const NoneRemainingNotice = "_No recommendations remaining._"

var (
	recLine   = regexp.MustCompile(`^\s*-\s+\*\*Rec\s+(\d+)\.\*\*\s*(.*)$`)
	numberRun = regexp.MustCompile(`\d+`)
)

// RecNumber reports the display index printed on a rendered bullet line.
func RecNumber(line string) (int, bool) {
	m := recLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// DeleteRecs removes the bullet lines whose printed number is in numbers.
// Surviving lines are kept verbatim and never renumbered. Group headings
// left with no content are dropped. removed lists the numbers actually
// found, deduplicated in document order. When nothing matches, md is
// returned unchanged.
func DeleteRecs(md string, numbers []int) (string, []int) {
	del := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		del[n] = true
	}
	if len(del) == 0 {
		return md, nil
	}

	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	var removed []int
	seen := make(map[int]bool)
	for _, line := range lines {
		if n, ok := RecNumber(line); ok && del[n] {
			if !seen[n] {
				seen[n] = true
				removed = append(removed, n)
			}
			continue
		}
		kept = append(kept, line)
	}
	if len(removed) == 0 {
		return md, nil
	}

	out := dropEmptyGroups(kept)
	result := strings.TrimSpace(strings.Join(out, "\n"))

	remaining := false
	for _, line := range out {
		if _, ok := RecNumber(line); ok {
			remaining = true
			break
		}
	}
	if !remaining {
		if result == "" {
			result = NoneRemainingNotice
		} else {
			result += "\n\n" + NoneRemainingNotice
		}
	}
	return result, removed
}

// dropEmptyGroups removes "### " heading blocks that hold neither a
// recommendation line nor any other non-blank text.
func dropEmptyGroups(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isGroupHeading(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i + 1
		for j < len(lines) && !isGroupHeading(lines[j]) {
			j++
		}
		block := lines[i+1 : j]
		if hasContent(block) {
			out = append(out, lines[i:j]...)
		} else if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		i = j
	}
	return out
}

func isGroupHeading(line string) bool {
	return strings.HasPrefix(line, "### ")
}

func hasContent(block []string) bool {
	for _, line := range block {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// ParseRecNums pulls every positive integer out of free text such as
// "7, 12" or "Rec 7 and 12", deduplicated in order.
func ParseRecNums(raw string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, s := range numberRun.FindAllString(raw, -1) {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
