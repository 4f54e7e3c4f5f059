package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/recgest/internal/chunker"
	"github.com/dgallion1/recgest/internal/doctree"
)

const triageOutputTokens = 400

// TriageLimits caps what each section contributes to a triage request.
type TriageLimits struct {
	PathMax    int
	PreviewMax int
}

type triageCandidate struct {
	Index   int    `json:"sec_idx"`
	Path    string `json:"path"`
	Preview string `json:"preview"`
}

type triageResponse struct {
	Keep  []json.RawMessage `json:"keep"`
	Maybe []json.RawMessage `json:"maybe"`
}

// Triage asks which sections of batch likely hold recommendations. The
// result is the union of "keep" then "maybe", deduplicated in order and
// restricted to indices present in batch. An empty batch makes no call.
func Triage(ctx context.Context, c Completer, batch []doctree.Section, lim TriageLimits) Outcome[[]int] {
	if len(batch) == 0 {
		return Succeeded[[]int](nil)
	}

	known := make(map[int]bool, len(batch))
	cands := make([]triageCandidate, 0, len(batch))
	for _, sec := range batch {
		known[sec.Index] = true
		cands = append(cands, triageCandidate{
			Index:   sec.Index,
			Path:    chunker.Clip(sec.Path, lim.PathMax),
			Preview: chunker.Clip(chunker.Preview(sec.Content), lim.PreviewMax),
		})
	}
	payload, err := json.Marshal(cands)
	if err != nil {
		return Failed[[]int](fmt.Errorf("marshal triage batch: %w", err))
	}

	raw, err := c.Complete(ctx, Request{
		Instructions:    triageInstructions,
		Input:           "SECTIONS_JSON:\n" + string(payload) + "\n\nReturn JSON now.",
		MaxOutputTokens: triageOutputTokens,
		Temperature:     Deterministic(),
		JSON:            true,
		Verbosity:       "low",
	})
	if err != nil {
		return Failed[[]int](fmt.Errorf("triage: %w", err))
	}

	var resp triageResponse
	if err := DecodeObject(raw, &resp); err != nil {
		return Failed[[]int](fmt.Errorf("triage: %w", err))
	}

	var out []int
	seen := make(map[int]bool)
	for _, v := range append(resp.Keep, resp.Maybe...) {
		idx, ok := flexInt(v)
		if !ok || !known[idx] || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return Succeeded(out)
}
