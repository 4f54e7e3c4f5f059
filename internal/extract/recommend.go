package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/recgest/internal/doctree"
	"github.com/dgallion1/recgest/internal/recdoc"
)

const extractionOutputTokens = 2400

var errItemsNotList = errors.New(`response "items" is not a list`)

type itemsResponse struct {
	Items json.RawMessage `json:"items"`
}

// ExtractRecommendations pulls the recommendations out of one section part.
// Every returned item has non-empty text and a source snippet prefixed with
// the part's bracketed label.
func ExtractRecommendations(ctx context.Context, c Completer, part doctree.SectionPart, s Strictness) Outcome[[]recdoc.Recommendation] {
	text := strings.TrimSpace(part.Text)
	if text == "" {
		return Succeeded[[]recdoc.Recommendation](nil)
	}
	label := part.Label()

	raw, err := c.Complete(ctx, Request{
		Instructions:    ExtractionInstructions(s),
		Input:           fmt.Sprintf("SECTION: %s\n\nTEXT:\n%s\n\nReturn JSON now.", label, text),
		MaxOutputTokens: extractionOutputTokens,
		Temperature:     Deterministic(),
		JSON:            true,
		Verbosity:       "low",
	})
	if err != nil {
		return Failed[[]recdoc.Recommendation](fmt.Errorf("extract %q: %w", label, err))
	}

	items, err := decodeItems(raw)
	if err != nil {
		return Failed[[]recdoc.Recommendation](fmt.Errorf("extract %q: %w", label, err))
	}

	out := make([]recdoc.Recommendation, 0, len(items))
	for _, it := range items {
		if rec, ok := ValidateItem(it, label); ok {
			out = append(out, rec)
		}
	}
	return Succeeded(out)
}

func decodeItems(raw string) ([]json.RawMessage, error) {
	var resp itemsResponse
	if err := DecodeObject(raw, &resp); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Items, &items); err != nil || items == nil {
		return nil, errItemsNotList
	}
	return items, nil
}
