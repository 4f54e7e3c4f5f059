package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/recgest/internal/extract"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	snap := s.stats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"model": snap.Model,
		"stats": snap,
	})
}

type metaRequest struct {
	GuidelineIDs []string `json:"guideline_ids"`
	Mode         string   `json:"mode"`
	Question     string   `json:"question"`
}

// handleMeta synthesizes across the saved displays of the given guidelines.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	var req metaRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := extract.ParseSynthesisMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	text, err := s.synth.Generate(r.Context(), req.GuidelineIDs, mode, req.Question)
	if err != nil {
		s.log.Error("synthesis failed", "guidelines", len(req.GuidelineIDs), "mode", mode, "error", err)
		jsonError(w, "synthesis failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":   mode,
		"text":   text,
		"empty":  text == "",
		"inputs": len(req.GuidelineIDs),
	})
}
