package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/recgest/internal/chunker"
)

const (
	DefaultMetaSnippetChars = 9000

	metaHeadLines   = 140
	metaScanLines   = 600
	metaPickedLines = 220
	yearWindow      = 50
)

var (
	yearRe        = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	metaKeywordRe = regexp.MustCompile(`(?i)(\b(published|publication|issued|released|updated|update|revision|copyright|guideline|statement|recommendation|consensus|society|association|college)\b|©)`)
	tagSplitRe    = regexp.MustCompile(`[,\n;|]+`)
	noTagRe       = regexp.MustCompile(`(?i)^\s*(none|n/a|na|null|0|unknown)\s*$`)
)

// TitleYear is the metadata read off a guideline's front matter.
type TitleYear struct {
	GuidelineName string `json:"guideline_name"`
	PubYear       string `json:"pub_year"`
}

// MetaSnippet condenses a guideline's markdown for metadata extraction:
// its first non-blank lines, then distinct lines that mention a year, a
// publication keyword, or a heading.
func MetaSnippet(md string, maxChars int) string {
	text := strings.TrimSpace(strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(md))
	if text == "" {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMetaSnippetChars
	}

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	head := strings.Join(lines[:min(metaHeadLines, len(lines))], "\n")

	var picked []string
	seen := make(map[string]bool)
	for _, ln := range lines[:min(metaScanLines, len(lines))] {
		if !yearRe.MatchString(ln) && !metaKeywordRe.MatchString(ln) && !strings.HasPrefix(ln, "#") {
			continue
		}
		key := strings.ToLower(ln)
		if seen[key] {
			continue
		}
		seen[key] = true
		picked = append(picked, ln)
		if len(picked) >= metaPickedLines {
			break
		}
	}

	blob := head + "\n\n" + strings.Join(picked, "\n")
	r := []rune(blob)
	if len(r) > maxChars {
		blob = string(r[:maxChars])
	}
	return strings.TrimSpace(blob)
}

// ParseYear4 returns the first plausible four-digit year in raw, or "".
func ParseYear4(raw string, now time.Time) string {
	m := yearRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	y, _ := strconv.Atoi(m[1])
	if y < 1900 || y > now.Year()+1 {
		return ""
	}
	return m[1]
}

// BestYearGuess scores each year in text by nearby publication vocabulary
// and returns the best one. Ties go to the later year.
func BestYearGuess(text string, now time.Time) string {
	type hit struct{ score, year int }
	var hits []hit
	for _, loc := range yearRe.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[loc[2]:loc[3]])
		window := strings.ToLower(text[max(0, loc[0]-yearWindow):min(len(text), loc[0]+yearWindow)])
		score := 0
		if containsAny(window, "publish", "publication", "issued", "release") {
			score += 3
		}
		if containsAny(window, "update", "revision") {
			score += 2
		}
		if containsAny(window, "copyright", "©") {
			score++
		}
		hits = append(hits, hit{score, y})
	}
	if len(hits) == 0 {
		return ""
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].year > hits[j].year
	})
	best := hits[0].year
	if best < 1900 || best > now.Year()+1 {
		return ""
	}
	return strconv.Itoa(best)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ParseTagList normalizes a free-form list into "a, b, c": split on commas,
// semicolons, pipes and newlines, strip bullets, and drop case-insensitive
// duplicates. Placeholder answers such as "none" yield "".
func ParseTagList(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || noTagRe.MatchString(s) {
		return ""
	}
	var out []string
	seen := make(map[string]bool)
	for _, tok := range tagSplitRe.Split(s, -1) {
		tok = strings.TrimSpace(strings.Trim(strings.TrimSpace(tok), "-•"))
		key := strings.ToLower(tok)
		if tok == "" || seen[key] || noTagRe.MatchString(tok) {
			continue
		}
		seen[key] = true
		out = append(out, tok)
	}
	return strings.Join(out, ", ")
}

// ExtractTitleYear asks for the guideline's official name and publication
// year. The year is not validated here; see ParseYear4.
func ExtractTitleYear(ctx context.Context, c Completer, filename, snippet string) (TitleYear, error) {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return TitleYear{}, nil
	}
	raw, err := c.Complete(ctx, Request{
		Instructions:    titleYearInstructions,
		Input:           fmt.Sprintf("FILENAME:\n%s\n\nTEXT EXCERPT:\n%s\n\nReturn JSON now.", strings.TrimSpace(filename), snippet),
		MaxOutputTokens: 220,
		Temperature:     Deterministic(),
		JSON:            true,
		Verbosity:       "low",
	})
	if err != nil {
		return TitleYear{}, fmt.Errorf("title/year: %w", err)
	}

	var resp struct {
		Name json.RawMessage `json:"guideline_name"`
		Year json.RawMessage `json:"pub_year"`
	}
	if err := DecodeObject(raw, &resp); err != nil {
		return TitleYear{}, fmt.Errorf("title/year: %w", err)
	}
	out := TitleYear{
		GuidelineName: chunker.Clip(strings.Join(strings.Fields(flexString(resp.Name)), " "), 300),
		PubYear:       flexString(resp.Year),
	}
	if out.PubYear == "" {
		if y, ok := flexInt(resp.Year); ok {
			out.PubYear = strconv.Itoa(y)
		}
	}
	return out, nil
}

// ExtractSpecialty asks for the guideline's medical specialties as a
// normalized comma-separated list.
func ExtractSpecialty(ctx context.Context, c Completer, title, snippet string) (string, error) {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return "", nil
	}
	raw, err := c.Complete(ctx, Request{
		Instructions:    specialtyInstructions,
		Input:           fmt.Sprintf("TITLE:\n%s\n\nEXCERPT:\n%s\n\nReturn the specialty list.", strings.TrimSpace(title), snippet),
		MaxOutputTokens: 48,
		Temperature:     Deterministic(),
		Verbosity:       "low",
	})
	if err != nil {
		return "", fmt.Errorf("specialty: %w", err)
	}
	return ParseTagList(raw), nil
}
