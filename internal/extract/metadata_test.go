package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/recgest/internal/cache"
)

var now2025 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestParseYear4(t *testing.T) {
	assert.Equal(t, "2019", ParseYear4("Published 2019", now2025))
	assert.Equal(t, "2026", ParseYear4("2026", now2025))
	assert.Equal(t, "", ParseYear4("2027", now2025))
	assert.Equal(t, "", ParseYear4("n/a", now2025))
}

func TestBestYearGuess(t *testing.T) {
	text := "Copyright 2018 Society. Literature searched through 2016. First published 2017 and updated 2020."
	assert.Equal(t, "2020", BestYearGuess(text, now2025))
	assert.Equal(t, "2021", BestYearGuess("cites 2019 and 2021", now2025))
	assert.Equal(t, "", BestYearGuess("no years", now2025))
}

func TestParseTagList(t *testing.T) {
	assert.Equal(t, "Cardiology, emergency medicine", ParseTagList("- Cardiology; emergency medicine\n• cardiology | Emergency Medicine"))
	assert.Equal(t, "Nephrology", ParseTagList("N/A, Nephrology, none"))
	assert.Equal(t, "", ParseTagList(" Unknown "))
	assert.Equal(t, "", ParseTagList(""))
}

func TestMetaSnippet(t *testing.T) {
	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, fmt.Sprintf("body line %d", i))
	}
	lines = append(lines, "## Late heading", "Published by the College in 2021", "Published by the College in 2021")
	md := strings.Join(lines, "\r\n")

	snip := MetaSnippet(md, 100000)
	assert.True(t, strings.HasPrefix(snip, "body line 0\nbody line 1\n"))
	assert.NotContains(t, snip, "body line 140\n")
	assert.Contains(t, snip, "## Late heading")
	assert.Equal(t, 1, strings.Count(snip, "Published by the College in 2021"))

	assert.Len(t, []rune(MetaSnippet(md, 50)), 50)
	assert.Equal(t, "", MetaSnippet("  \n ", 0))
}

func TestExtractTitleYear(t *testing.T) {
	c := reply("```json\n{\"guideline_name\":\" 2024  Guideline for   Hypertension \",\"pub_year\":\"2024\"}\n```")
	out, err := ExtractTitleYear(context.Background(), c, "htn.pdf", "snippet")
	require.NoError(t, err)
	assert.Equal(t, TitleYear{GuidelineName: "2024 Guideline for Hypertension", PubYear: "2024"}, out)

	out, err = ExtractTitleYear(context.Background(), reply(`{"guideline_name":"Asthma","pub_year":2019}`), "a.pdf", "snippet")
	require.NoError(t, err)
	assert.Equal(t, "2019", out.PubYear)

	out, err = ExtractTitleYear(context.Background(), failing(errors.New("must not be called")), "x.pdf", " ")
	require.NoError(t, err)
	assert.Equal(t, TitleYear{}, out)
}

func TestExtractSpecialty(t *testing.T) {
	out, err := ExtractSpecialty(context.Background(), reply("Cardiology, Nephrology, cardiology"), "t", "s")
	require.NoError(t, err)
	assert.Equal(t, "Cardiology, Nephrology", out)
}

func TestSynthesisRequest(t *testing.T) {
	req := SynthesisRequest(ModeAnswer, "", "GUIDELINE 1: A")
	assert.True(t, strings.HasPrefix(req.Input, "Question: (none provided)\n\nSOURCES:\nGUIDELINE 1: A"))
	assert.Contains(t, req.Instructions, "focused clinical question")

	req = SynthesisRequest(ModeSummary, "ignored", "GUIDELINE 1: A")
	assert.True(t, strings.HasPrefix(req.Input, "SOURCES:\n"))

	_, err := ParseSynthesisMode("poem")
	assert.Error(t, err)
}

func TestCachedCompleter_HitsSkipBackend(t *testing.T) {
	calls := 0
	backend := CompleterFunc(func(_ context.Context, req Request) (string, error) {
		calls++
		return "out:" + req.Input, nil
	})
	cc := NewCachedCompleter(backend, cache.NewMemoryCache(), "m1", time.Hour, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		out, err := cc.Complete(ctx, Request{Input: "a"})
		require.NoError(t, err)
		assert.Equal(t, "out:a", out)
	}
	assert.Equal(t, 1, calls)

	_, _ = cc.Complete(ctx, Request{Input: "b"})
	assert.Equal(t, 2, calls)
	assert.NotEqual(t, CacheKey("m1", Request{Input: "a"}), CacheKey("m2", Request{Input: "a"}))
}

func TestCachedCompleter_ErrorsNotCached(t *testing.T) {
	calls := 0
	backend := CompleterFunc(func(context.Context, Request) (string, error) {
		calls++
		return "", errors.New("down")
	})
	cc := NewCachedCompleter(backend, cache.NewMemoryCache(), "m", time.Hour, nil)
	_, err := cc.Complete(context.Background(), Request{Input: "a"})
	assert.Error(t, err)
	_, err = cc.Complete(context.Background(), Request{Input: "a"})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
