package chunker

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/dgallion1/recgest/internal/doctree"
)

func nonBlankLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func TestSectionize_HeadingPaths(t *testing.T) {
	input := `# Guideline

Intro text.

## Diagnosis

Patients should have a lipid panel.

### Imaging

Consider CT angiography.

## Treatment

Start statins.
`
	secs := Sectionize(input)
	want := []struct {
		path  string
		level int
	}{
		{"Guideline", 1},
		{"Guideline > Diagnosis", 2},
		{"Guideline > Diagnosis > Imaging", 3},
		{"Guideline > Treatment", 2},
	}
	if len(secs) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(secs))
	}
	for i, w := range want {
		if secs[i].Path != w.path {
			t.Errorf("section %d: expected path %q, got %q", i, w.path, secs[i].Path)
		}
		if secs[i].Level != w.level {
			t.Errorf("section %d: expected level %d, got %d", i, w.level, secs[i].Level)
		}
		if secs[i].Index != i+1 {
			t.Errorf("section %d: expected index %d, got %d", i, i+1, secs[i].Index)
		}
	}
	if !strings.HasPrefix(secs[1].Content, "## Diagnosis") {
		t.Errorf("expected content to keep heading line, got %q", secs[1].Content)
	}
}

func TestSectionize_LevelSkip(t *testing.T) {
	secs := Sectionize("# A\ntext a\n### C\ntext c\n## B\ntext b")
	if len(secs) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(secs))
	}
	if secs[1].Path != "A > C" {
		t.Errorf("expected %q, got %q", "A > C", secs[1].Path)
	}
	if secs[2].Path != "A > B" {
		t.Errorf("expected %q, got %q", "A > B", secs[2].Path)
	}
}

func TestSectionize_NoHeadingFallback(t *testing.T) {
	secs := Sectionize("  Just prose.\n\nMore prose.  \n")
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if secs[0].Path != doctree.NoHeadingPath || secs[0].Level != 0 {
		t.Errorf("expected sentinel path at level 0, got %q/%d", secs[0].Path, secs[0].Level)
	}
	if secs[0].Content != "Just prose.\n\nMore prose." {
		t.Errorf("unexpected content %q", secs[0].Content)
	}
}

func TestSectionize_PreambleBeforeFirstHeading(t *testing.T) {
	secs := Sectionize("Title page\n# One\nbody")
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].Path != doctree.NoHeadingPath {
		t.Errorf("expected preamble under sentinel, got %q", secs[0].Path)
	}
}

func TestSectionize_EmptyInput(t *testing.T) {
	if secs := Sectionize(" \n\t\n"); len(secs) != 0 {
		t.Errorf("expected no sections, got %d", len(secs))
	}
}

func TestSectionize_ClosingHashesAndCRLF(t *testing.T) {
	secs := Sectionize("## Dosing ##\r\nGive 5 mg.\r\n")
	if len(secs) != 1 || secs[0].Path != "Dosing" {
		t.Fatalf("unexpected sections %+v", secs)
	}
}

func TestSectionize_TotalCoverage(t *testing.T) {
	inputs := []string{
		"# A\n\nline 1\n\n## B\nline 2\n   \n### C\n#### D\nline 3\n# E\n",
		"pre\n\n# H1\n  indented line\n## H2\n\n\n## H3\ntext",
		"no headings here\nsecond line",
		"# only heading",
		"### deep first\nbody\n# shallow\nbody2",
	}
	for _, in := range inputs {
		var rebuilt []string
		for _, s := range Sectionize(in) {
			rebuilt = append(rebuilt, s.Content)
		}
		got := nonBlankLines(strings.Join(rebuilt, "\n"))
		want := nonBlankLines(in)
		if strings.Join(got, "\n") != strings.Join(want, "\n") {
			t.Errorf("coverage mismatch for %q:\n got %q\nwant %q", in, got, want)
		}
	}
}

func TestSplit_WithinBudget(t *testing.T) {
	parts := Split("  short text  ", 100, 10)
	if len(parts) != 1 || parts[0] != "short text" {
		t.Errorf("expected single stripped part, got %q", parts)
	}
}

func TestSplit_CoverageAndOverlap(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzé")
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(400)
		text := make([]rune, n)
		for i := range text {
			text[i] = alphabet[rng.IntN(len(alphabet))]
		}
		maxChars := 1 + rng.IntN(60)
		overlap := rng.IntN(maxChars)

		parts := Split(string(text), maxChars, overlap)
		if n <= maxChars {
			if len(parts) != 1 || parts[0] != string(text) {
				t.Fatalf("expected one part equal to input, got %d parts", len(parts))
			}
			continue
		}

		covered := make([]bool, n)
		step := maxChars - overlap
		for i, p := range parts {
			start := i * step
			if string(text[start:start+len([]rune(p))]) != p {
				t.Fatalf("part %d does not match its window", i)
			}
			for j := start; j < start+len([]rune(p)); j++ {
				covered[j] = true
			}
			if len([]rune(p)) > maxChars {
				t.Fatalf("part %d exceeds max chars", i)
			}
			if i > 0 {
				prev := []rune(parts[i-1])
				cur := []rune(p)
				if overlap > 0 && string(prev[len(prev)-overlap:]) != string(cur[:overlap]) {
					t.Fatalf("parts %d and %d do not share %d chars", i-1, i, overlap)
				}
			}
		}
		for i, c := range covered {
			if !c {
				t.Fatalf("index %d not covered (n=%d max=%d overlap=%d)", i, n, maxChars, overlap)
			}
		}
	}
}

func TestSplit_NonPositiveStepFallsBack(t *testing.T) {
	parts := Split(strings.Repeat("x", 25), 10, 10)
	if len(parts) != 3 {
		t.Errorf("expected 3 non-overlapping parts, got %d", len(parts))
	}
}

func TestSplitSection_Labels(t *testing.T) {
	sec := doctree.Section{Index: 4, Path: "Therapy", Content: strings.Repeat("a", 25)}
	parts := SplitSection(sec, 10, 2)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	if got := parts[1].Label(); got != fmt.Sprintf("Therapy (part 2/%d)", len(parts)) {
		t.Errorf("unexpected label %q", got)
	}
	single := SplitSection(doctree.Section{Index: 1, Path: "Dx", Content: "short"}, 10, 2)
	if single[0].Label() != "Dx" {
		t.Errorf("single part label should be bare path, got %q", single[0].Label())
	}
}

func TestClip(t *testing.T) {
	if got := Clip("abcdef", 4); got != "abc…" {
		t.Errorf("expected %q, got %q", "abc…", got)
	}
	if got := Clip("abc", 4); got != "abc" {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if got := EstimateTokens("one two three"); got != 3 {
		t.Errorf("expected 3 tokens, got %d", got)
	}
}
