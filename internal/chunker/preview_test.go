package chunker

import (
	"strings"
	"testing"
)

func TestPreview_ShortTextReturnedWhole(t *testing.T) {
	in := "## Dosing\nGive 5 mg daily."
	if got := Preview(in); got != in {
		t.Errorf("expected short text unchanged, got %q", got)
	}
}

func TestPreview_IncludesHintsAndTail(t *testing.T) {
	filler := strings.Repeat("Background narrative about epidemiology. ", 40)
	in := "## Management\n" + filler + "\nClinicians should obtain a troponin at presentation.\n" +
		strings.Repeat("More background. ", 60) + "\nClass I, Level of Evidence A.\nFinal closing remark."

	got := Preview(in)
	if !strings.HasPrefix(got, "## Management") {
		t.Errorf("expected preview to start with head, got %q", got[:40])
	}
	if !strings.Contains(got, "- Clinicians should obtain a troponin at presentation.") {
		t.Errorf("expected directive hint line in preview")
	}
	if !strings.Contains(got, "Final closing remark.") {
		t.Errorf("expected tail in preview")
	}
	if len([]rune(got)) > previewHeadChars+previewTailChars+previewMaxHints*(previewHintWidth+3)+64 {
		t.Errorf("preview too long: %d", len([]rune(got)))
	}
}

func TestPreview_HintCapAndWidth(t *testing.T) {
	var b strings.Builder
	b.WriteString(strings.Repeat("x", previewHeadChars+10))
	for i := 0; i < 30; i++ {
		b.WriteString("\nRecommendation ")
		b.WriteString(strings.Repeat("y", i))
		b.WriteString(" " + strings.Repeat("z", 300))
	}
	hints := hintLines(b.String(), strings.Repeat("x", previewHeadChars))
	if len(hints) != previewMaxHints {
		t.Fatalf("expected %d hints, got %d", previewMaxHints, len(hints))
	}
	for _, h := range hints {
		if len([]rune(h)) > previewHintWidth {
			t.Errorf("hint exceeds width: %d", len([]rune(h)))
		}
	}
}
