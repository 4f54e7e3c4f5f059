package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/store"
)

type fakeStore struct {
	mu         sync.Mutex
	guidelines map[string]store.Guideline
	displays   map[string]string
	writes     int
}

func newFakeStore(gs ...store.Guideline) *fakeStore {
	s := &fakeStore{guidelines: map[string]store.Guideline{}, displays: map[string]string{}}
	for _, g := range gs {
		s.guidelines[g.ID] = g
	}
	return s
}

func (s *fakeStore) GetGuideline(_ context.Context, id string) (store.Guideline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guidelines[id]
	if !ok {
		return store.Guideline{}, store.ErrNotFound
	}
	return g, nil
}

func (s *fakeStore) UpdateRecommendationsDisplay(_ context.Context, id, md string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guidelines[id]; !ok {
		return store.ErrNotFound
	}
	s.writes++
	s.displays[id] = strings.TrimSpace(md)
	return nil
}

func (s *fakeStore) GetRecommendationsDisplay(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guidelines[id]; !ok {
		return "", store.ErrNotFound
	}
	return s.displays[id], nil
}

func (s *fakeStore) UpdateMetadata(_ context.Context, id, name, year, specialty string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guidelines[id]
	if !ok {
		return store.ErrNotFound
	}
	g.Name, g.PubYear, g.Specialty = name, year, specialty
	s.guidelines[id] = g
	return nil
}

// echoLLM keeps every triaged section, extracts each non-heading line of a
// part as one recommendation, and classifies everything as label.
type echoLLM struct {
	mu    sync.Mutex
	label string
	calls map[string]int

	failTriage   map[int]bool    // 1-based triage call numbers that error
	failExtract  map[string]bool // section labels whose extraction errors
	failClassify bool
}

func newEchoLLM() *echoLLM {
	return &echoLLM{label: "Other", calls: map[string]int{}}
}

func (e *echoLLM) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.LastIndex(s, end); j >= 0 {
		s = s[:j]
	}
	return s
}

func (e *echoLLM) Complete(_ context.Context, req extract.Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case strings.HasPrefix(req.Input, "SECTIONS_JSON:"):
		e.calls["triage"]++
		if e.failTriage[e.calls["triage"]] {
			return "", errors.New("triage unavailable")
		}
		var secs []struct {
			Index int `json:"sec_idx"`
		}
		if err := json.Unmarshal([]byte(between(req.Input, "SECTIONS_JSON:\n", "\n\nReturn JSON now.")), &secs); err != nil {
			return "", err
		}
		keep := make([]int, 0, len(secs))
		for _, s := range secs {
			keep = append(keep, s.Index)
		}
		return mustJSON(map[string]any{"keep": keep, "maybe": []int{}}), nil

	case strings.HasPrefix(req.Input, "SECTION: "):
		e.calls["extract"]++
		label := between(req.Input, "SECTION: ", "\n\nTEXT:\n")
		if e.failExtract[label] {
			return "", errors.New("extraction unavailable")
		}
		var items []map[string]string
		for _, line := range strings.Split(between(req.Input, "TEXT:\n", "\n\nReturn JSON now."), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			items = append(items, map[string]string{
				"recommendation_text": line,
				"strength_raw":        "",
				"evidence_raw":        "",
				"source_snippet":      line,
			})
		}
		if items == nil {
			items = []map[string]string{}
		}
		return mustJSON(map[string]any{"items": items}), nil

	case strings.HasPrefix(req.Input, "ITEMS_JSON:"):
		e.calls["classify"]++
		if e.failClassify {
			return "not json at all", nil
		}
		var items []struct {
			I int `json:"i"`
		}
		if err := json.Unmarshal([]byte(between(req.Input, "ITEMS_JSON:\n", "\n\nReturn JSON now.")), &items); err != nil {
			return "", err
		}
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			out = append(out, map[string]any{"i": it.I, "section": e.label})
		}
		return mustJSON(map[string]any{"items": out}), nil
	}
	e.calls["other"]++
	return "synthesized", nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
