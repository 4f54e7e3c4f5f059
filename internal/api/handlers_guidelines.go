package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/store"
)

func (s *Server) handleListGuidelines(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var (
		gs  []store.Guideline
		err error
	)
	if q != "" {
		gs, err = s.store.SearchGuidelines(r.Context(), q, limit)
	} else {
		gs, err = s.store.ListGuidelines(r.Context(), limit)
	}
	if err != nil {
		s.log.Error("list guidelines failed", "query", q, "error", err)
		jsonError(w, "failed to list guidelines", http.StatusInternalServerError)
		return
	}
	if gs == nil {
		gs = []store.Guideline{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"guidelines": gs})
}

func (s *Server) handleGetGuideline(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGuideline(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGuideline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteGuideline(r.Context(), id); err != nil {
		s.storeError(w, "delete guideline", id, err)
		return
	}
	s.log.Info("guideline deleted", "guideline_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"guideline_id": id, "deleted": true})
}

type metadataRequest struct {
	Name      *string `json:"guideline_name"`
	PubYear   *string `json:"pub_year"`
	Specialty *string `json:"specialty"`
}

// handleUpdateMetadata applies manual metadata edits. Omitted fields keep
// their stored value.
func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGuideline(w, r)
	if !ok {
		return
	}
	var req metadataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	name, year, specialty := g.Name, g.PubYear, g.Specialty
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if req.PubYear != nil {
		year = strings.TrimSpace(*req.PubYear)
		if year != "" {
			if year = extract.ParseYear4(year, time.Now()); year == "" {
				jsonError(w, "pub_year must be a four-digit year", http.StatusBadRequest)
				return
			}
		}
	}
	if req.Specialty != nil {
		specialty = extract.ParseTagList(*req.Specialty)
	}

	if err := s.store.UpdateMetadata(r.Context(), g.ID, name, year, specialty); err != nil {
		s.storeError(w, "update metadata", g.ID, err)
		return
	}
	updated, err := s.store.GetGuideline(r.Context(), g.ID)
	if err != nil {
		s.storeError(w, "reload guideline", g.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) loadGuideline(w http.ResponseWriter, r *http.Request) (store.Guideline, bool) {
	id := chi.URLParam(r, "id")
	g, err := s.store.GetGuideline(r.Context(), id)
	if err != nil {
		s.storeError(w, "get guideline", id, err)
		return store.Guideline{}, false
	}
	return g, true
}

func (s *Server) storeError(w http.ResponseWriter, op, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "guideline not found", http.StatusNotFound)
		return
	}
	s.log.Error(op+" failed", "guideline_id", id, "error", err)
	jsonError(w, op+" failed", http.StatusInternalServerError)
}
