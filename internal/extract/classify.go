package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/recgest/internal/chunker"
	"github.com/dgallion1/recgest/internal/recdoc"
)

const classifyTokensPerItem = 30

// ClassifyLimits bounds one classification request.
type ClassifyLimits struct {
	BatchSize int
	MaxChars  int
	ItemMax   int
}

// Span is a half-open range [Start, End) of item positions.
type Span struct {
	Start, End int
}

// ClassifyBatches groups texts into consecutive spans, closing a span when
// either the item ceiling or the character budget would be exceeded. Every
// span holds at least one item.
func ClassifyBatches(texts []string, lim ClassifyLimits) []Span {
	var spans []Span
	start, chars := 0, 0
	for i, t := range texts {
		n := len([]rune(chunker.Clip(t, lim.ItemMax)))
		full := lim.BatchSize > 0 && i-start >= lim.BatchSize
		over := lim.MaxChars > 0 && chars+n > lim.MaxChars
		if i > start && (full || over) {
			spans = append(spans, Span{start, i})
			start, chars = i, 0
		}
		chars += n
	}
	if start < len(texts) {
		spans = append(spans, Span{start, len(texts)})
	}
	return spans
}

type classifyItem struct {
	I    int    `json:"i"`
	Text string `json:"text"`
}

type classifyResponse struct {
	Items []struct {
		I       json.RawMessage `json:"i"`
		Section json.RawMessage `json:"section"`
	} `json:"items"`
}

// Classify labels one batch of recommendation texts. Keys of the result are
// 1-based positions within texts; labels are canonicalized against tax.
// Items the response leaves out are absent from the map.
func Classify(ctx context.Context, c Completer, texts []string, tax *recdoc.Taxonomy, itemMax int) Outcome[map[int]string] {
	if len(texts) == 0 {
		return Succeeded(map[int]string{})
	}
	if tax == nil {
		tax = recdoc.NewTaxonomy(nil)
	}

	items := make([]classifyItem, len(texts))
	for i, t := range texts {
		items[i] = classifyItem{I: i + 1, Text: chunker.Clip(t, itemMax)}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return Failed[map[int]string](fmt.Errorf("marshal classify batch: %w", err))
	}

	raw, err := c.Complete(ctx, Request{
		Instructions:    classifyInstructions(tax.Labels(), recdoc.PossibleRepeats, recdoc.Other),
		Input:           "ITEMS_JSON:\n" + string(payload) + "\n\nReturn JSON now.",
		MaxOutputTokens: 200 + classifyTokensPerItem*len(texts),
		Temperature:     Deterministic(),
		JSON:            true,
		Verbosity:       "low",
	})
	if err != nil {
		return Failed[map[int]string](fmt.Errorf("classify: %w", err))
	}

	var resp classifyResponse
	if err := DecodeObject(raw, &resp); err != nil {
		return Failed[map[int]string](fmt.Errorf("classify: %w", err))
	}

	labels := make(map[int]string, len(texts))
	for _, it := range resp.Items {
		i, ok := flexInt(it.I)
		if !ok || i < 1 || i > len(texts) {
			continue
		}
		if _, dup := labels[i]; dup {
			continue
		}
		if label := tax.Canonical(flexString(it.Section)); label != "" {
			labels[i] = label
		}
	}
	return Succeeded(labels)
}
