package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/recgest/internal/doctree"
	"github.com/dgallion1/recgest/internal/recdoc"
)

func reply(out string) CompleterFunc {
	return func(context.Context, Request) (string, error) { return out, nil }
}

func failing(err error) CompleterFunc {
	return func(context.Context, Request) (string, error) { return "", err }
}

func TestDecodeObject(t *testing.T) {
	var v map[string]any
	require.NoError(t, DecodeObject("```json\n{\"a\":1}\n```", &v))
	assert.EqualValues(t, 1, v["a"])

	v = nil
	require.NoError(t, DecodeObject(`Sure! Here you go: {"a":2} hope that helps`, &v))
	assert.EqualValues(t, 2, v["a"])

	assert.ErrorIs(t, DecodeObject("   ", &v), ErrEmptyOutput)
	assert.Error(t, DecodeObject("no json here", &v))
}

func TestTriage_UnionDedupAndFilter(t *testing.T) {
	batch := []doctree.Section{
		{Index: 3, Path: "Intro", Content: "Background."},
		{Index: 4, Path: "Therapy", Content: "Clinicians should prescribe X."},
		{Index: 5, Path: "Refs", Content: "1. Smith"},
	}
	var seen Request
	c := CompleterFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return `{"keep":[4,"5",99],"maybe":[4,3]}`, nil
	})

	out := Triage(context.Background(), c, batch, TriageLimits{PathMax: 160, PreviewMax: 1400})
	require.True(t, out.OK())
	assert.Equal(t, []int{4, 5, 3}, out.Value)
	assert.True(t, seen.JSON)
	assert.Contains(t, seen.Input, `"sec_idx":4`)
}

func TestTriage_SoftFailures(t *testing.T) {
	batch := []doctree.Section{{Index: 1, Path: "A", Content: "x"}}

	out := Triage(context.Background(), failing(errors.New("boom")), batch, TriageLimits{})
	assert.False(t, out.OK())
	assert.Empty(t, out.Value)
	assert.Contains(t, out.Reason(), "boom")

	out = Triage(context.Background(), reply("not json"), batch, TriageLimits{})
	assert.False(t, out.OK())
	assert.Empty(t, out.Value)
}

func TestTriage_EmptyBatchMakesNoCall(t *testing.T) {
	out := Triage(context.Background(), failing(errors.New("must not be called")), nil, TriageLimits{})
	assert.True(t, out.OK())
	assert.Empty(t, out.Value)
}

func TestExtractRecommendations_LabelsProvenance(t *testing.T) {
	part := doctree.SectionPart{SectionIndex: 2, Path: "Therapy", PartIndex: 2, PartCount: 3, Text: "Give aspirin."}
	resp := `{"items":[
		{"recommendation_text":"Give aspirin.","strength_raw":"Class I","evidence_raw":null,"source_snippet":"Give aspirin."},
		{"recommendation_text":""},
		"garbage"
	]}`
	var seen Request
	c := CompleterFunc(func(_ context.Context, req Request) (string, error) {
		seen = req
		return resp, nil
	})

	out := ExtractRecommendations(context.Background(), c, part, Strict)
	require.True(t, out.OK())
	require.Len(t, out.Value, 1)
	rec := out.Value[0]
	assert.Equal(t, "Give aspirin.", rec.Text)
	assert.Equal(t, "Class I", rec.Strength)
	assert.Equal(t, "", rec.Evidence)
	assert.Equal(t, "[Therapy (part 2/3)] Give aspirin.", rec.SourceSnippet)
	assert.Contains(t, seen.Instructions, "STRICT")
	assert.Contains(t, seen.Input, "SECTION: Therapy (part 2/3)")
}

func TestExtractRecommendations_ItemsNotList(t *testing.T) {
	part := doctree.SectionPart{Path: "A", PartIndex: 1, PartCount: 1, Text: "x"}
	for _, raw := range []string{`{"items":"none"}`, `{"items":null}`, `{"other":[]}`, `oops`} {
		out := ExtractRecommendations(context.Background(), reply(raw), part, Medium)
		assert.False(t, out.OK(), raw)
		assert.Empty(t, out.Value, raw)
	}
	out := ExtractRecommendations(context.Background(), reply(`{"items":[]}`), part, Medium)
	assert.True(t, out.OK())
	assert.Empty(t, out.Value)
}

func TestParseStrictness(t *testing.T) {
	s, err := ParseStrictness(" LOOSE ")
	require.NoError(t, err)
	assert.Equal(t, Loose, s)
	s, err = ParseStrictness("")
	require.NoError(t, err)
	assert.Equal(t, Medium, s)
	_, err = ParseStrictness("lenient")
	assert.Error(t, err)

	for _, st := range []Strictness{Strict, Medium, Loose} {
		assert.Contains(t, ExtractionInstructions(st), `{"items":[]}`)
	}
}

func TestClassifyBatches(t *testing.T) {
	texts := []string{strings.Repeat("a", 50), strings.Repeat("b", 50), strings.Repeat("c", 50), "d", "e"}

	spans := ClassifyBatches(texts, ClassifyLimits{BatchSize: 2, MaxChars: 1000, ItemMax: 500})
	assert.Equal(t, []Span{{0, 2}, {2, 4}, {4, 5}}, spans)

	spans = ClassifyBatches(texts, ClassifyLimits{BatchSize: 40, MaxChars: 90, ItemMax: 500})
	assert.Equal(t, []Span{{0, 1}, {1, 2}, {2, 5}}, spans)

	spans = ClassifyBatches([]string{strings.Repeat("z", 5000)}, ClassifyLimits{BatchSize: 40, MaxChars: 10, ItemMax: 500})
	assert.Equal(t, []Span{{0, 1}}, spans)

	assert.Empty(t, ClassifyBatches(nil, ClassifyLimits{BatchSize: 1}))
}

func TestClassify_CanonicalizesAndSkipsUnknownIndices(t *testing.T) {
	tax := recdoc.NewTaxonomy(nil)
	var input []map[string]any
	c := CompleterFunc(func(_ context.Context, req Request) (string, error) {
		payload := strings.TrimSuffix(strings.TrimPrefix(req.Input, "ITEMS_JSON:\n"), "\n\nReturn JSON now.")
		require.NoError(t, json.Unmarshal([]byte(payload), &input))
		assert.Contains(t, req.Instructions, "- Patient Education\n")
		return `{"items":[{"i":1,"section":"labs"},{"i":"2","section":"  possible  repeats "},{"i":2,"section":"Labs"},{"i":7,"section":"Labs"},{"i":3,"section":""}]}`, nil
	})

	out := Classify(context.Background(), c, []string{"Check A1c.", "Check A1c again.", strings.Repeat("x", 900)}, tax, 500)
	require.True(t, out.OK())
	assert.Equal(t, map[int]string{1: "Labs", 2: recdoc.PossibleRepeats}, out.Value)
	require.Len(t, input, 3)
	assert.Len(t, []rune(input[2]["text"].(string)), 500)
}

func TestClassify_FailureIsSoft(t *testing.T) {
	out := Classify(context.Background(), reply(`{"items":"x"}`), []string{"a"}, nil, 500)
	assert.False(t, out.OK())
	assert.Empty(t, out.Value)
}
