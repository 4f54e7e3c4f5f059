package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/recgest/internal/config"
	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/pipeline"
	"github.com/dgallion1/recgest/internal/store"
)

// GuidelineStore is the persistence the API reads and edits.
type GuidelineStore interface {
	SaveGuideline(ctx context.Context, filename string, data []byte) (store.Guideline, bool, error)
	GetGuideline(ctx context.Context, id string) (store.Guideline, error)
	ListGuidelines(ctx context.Context, limit int) ([]store.Guideline, error)
	SearchGuidelines(ctx context.Context, q string, limit int) ([]store.Guideline, error)
	DeleteGuideline(ctx context.Context, id string) error
	UpdateMetadata(ctx context.Context, id, name, year, specialty string) error
	GetRecommendationsDisplay(ctx context.Context, id string) (string, error)
	UpdateRecommendationsDisplay(ctx context.Context, id, markdown string) error
}

// JobQueue accepts guideline jobs and reports on them.
type JobQueue interface {
	Submit(job *pipeline.Job) error
	GetJob(id string) *pipeline.Job
	QueueDepth() int
}

// Synthesizer writes evidence syntheses over saved recommendation displays.
type Synthesizer interface {
	Generate(ctx context.Context, ids []string, mode extract.SynthesisMode, question string) (string, error)
}

// Deps bundles the collaborators behind the HTTP API.
type Deps struct {
	Store GuidelineStore
	Jobs  JobQueue
	Synth Synthesizer
	Stats *extract.LLMStats
}

// Server is the HTTP API server for recgest.
type Server struct {
	router chi.Router
	store  GuidelineStore
	jobs   JobQueue
	synth  Synthesizer
	stats  *extract.LLMStats
	log    *logger.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *logger.Logger, cfg config.Config) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		store: deps.Store,
		jobs:  deps.Jobs,
		synth: deps.Synth,
		stats: deps.Stats,
		log:   log.With("component", "api"),
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.RecgestAPIKey, s.log))

		r.Post("/api/guidelines", s.handleUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/guidelines", s.handleListGuidelines)
		r.Route("/api/guidelines/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGuideline)
			r.Delete("/", s.handleDeleteGuideline)
			r.Put("/metadata", s.handleUpdateMetadata)
			r.Get("/recommendations", s.handleGetRecommendations)
			r.Put("/recommendations", s.handlePutRecommendations)
			r.Post("/recommendations/delete", s.handleDeleteRecommendations)
		})

		r.Post("/api/meta", s.handleMeta)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depth := 0
	if s.jobs != nil {
		depth = s.jobs.QueueDepth()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "queue_depth": depth})
}
