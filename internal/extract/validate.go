package extract

import (
	"encoding/json"
	"strings"

	"github.com/dgallion1/recgest/internal/chunker"
	"github.com/dgallion1/recgest/internal/recdoc"
)

const maxSnippetChars = 240

// rawItem mirrors one element of an extraction response. Fields are kept
// raw so a null or non-string value degrades to an empty string.
type rawItem struct {
	Text     json.RawMessage `json:"recommendation_text"`
	Strength json.RawMessage `json:"strength_raw"`
	Evidence json.RawMessage `json:"evidence_raw"`
	Snippet  json.RawMessage `json:"source_snippet"`
}

// ValidateItem normalizes one extracted item and stamps its provenance.
// Items without recommendation text are rejected.
func ValidateItem(raw json.RawMessage, provenance string) (recdoc.Recommendation, bool) {
	var it rawItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return recdoc.Recommendation{}, false
	}
	text := flexString(it.Text)
	if text == "" {
		return recdoc.Recommendation{}, false
	}

	snippet := chunker.Clip(strings.Join(strings.Fields(flexString(it.Snippet)), " "), maxSnippetChars)
	if provenance != "" {
		snippet = strings.TrimSpace("[" + provenance + "] " + snippet)
	}
	return recdoc.Recommendation{
		Text:          text,
		Strength:      flexString(it.Strength),
		Evidence:      flexString(it.Evidence),
		SourceSnippet: snippet,
	}, true
}
