package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgallion1/recgest/internal/parser"
	"github.com/dgallion1/recgest/internal/recdoc"
)

const maxDisplayBody = 4 << 20

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGuideline(w, r)
	if !ok {
		return
	}
	md, err := s.store.GetRecommendationsDisplay(r.Context(), g.ID)
	if err != nil {
		s.storeError(w, "get recommendations", g.ID, err)
		return
	}

	resp := map[string]any{
		"guideline_id": g.ID,
		"markdown":     md,
		"updated_at":   g.DisplayUpdatedAt,
	}
	if r.URL.Query().Get("format") == "html" {
		html, err := parser.RenderHTML(md)
		if err != nil {
			s.log.Error("render recommendations failed", "guideline_id", g.ID, "error", err)
			jsonError(w, "failed to render recommendations", http.StatusInternalServerError)
			return
		}
		action := fmt.Sprintf("/api/guidelines/%s/recommendations/delete", url.PathEscape(g.ID))
		resp["html"] = recdoc.WithDeleteLinks(html, action)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePutRecommendations replaces the saved display in full.
func (s *Server) handlePutRecommendations(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGuideline(w, r)
	if !ok {
		return
	}
	var req struct {
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDisplayBody)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.UpdateRecommendationsDisplay(r.Context(), g.ID, req.Markdown); err != nil {
		s.storeError(w, "update recommendations", g.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guideline_id": g.ID,
		"markdown":     strings.TrimSpace(req.Markdown),
	})
}

// handleDeleteRecommendations removes numbered recommendation lines. The
// numbers come from the JSON body ("7, 12" or [7, 12]) or, when the body is
// empty, from the numbers query parameter.
func (s *Server) handleDeleteRecommendations(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGuideline(w, r)
	if !ok {
		return
	}
	numbers, err := requestedNumbers(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(numbers) == 0 {
		jsonError(w, "no recommendation numbers given", http.StatusBadRequest)
		return
	}

	md, err := s.store.GetRecommendationsDisplay(r.Context(), g.ID)
	if err != nil {
		s.storeError(w, "get recommendations", g.ID, err)
		return
	}
	edited, removed := recdoc.DeleteRecs(md, numbers)
	if removed == nil {
		removed = []int{}
	}
	if len(removed) > 0 {
		if err := s.store.UpdateRecommendationsDisplay(r.Context(), g.ID, edited); err != nil {
			s.storeError(w, "update recommendations", g.ID, err)
			return
		}
		s.log.Info("recommendations deleted", "guideline_id", g.ID, "removed", removed)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guideline_id": g.ID,
		"removed":      removed,
		"markdown":     edited,
	})
}

func requestedNumbers(r *http.Request) ([]int, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return recdoc.ParseRecNums(r.URL.Query().Get("numbers")), nil
	}

	var req struct {
		Numbers json.RawMessage `json:"numbers"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %v", err)
	}
	raw := bytes.TrimSpace(req.Numbers)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return recdoc.ParseRecNums(text), nil
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("numbers must be a string or an array of integers")
	}
	var out []int
	seen := make(map[int]bool, len(list))
	for _, n := range list {
		if n > 0 && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}
