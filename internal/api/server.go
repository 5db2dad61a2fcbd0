package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/poextract/internal/config"
	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/pipeline"
)

// Server is the HTTP surface of the extraction pipeline. It is the
// boundary the presentation adapter consumes: everything it returns is
// plain JSON, lossless including null-flagged fields.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	model        *extract.ClaudeClient
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, model *extract.ClaudeClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		model:        model,
		log:          log,
		cfg:          cfg,
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

	r.Group(func(r chi.Router) {
		if s.cfg.ServiceAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.ServiceAPIKey, s.log))
		}

		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/extract/{runID}", s.handleExtractStatus)
		r.Post("/api/extract/sync", s.handleExtractSync)
		r.Post("/api/extract/batch", s.handleExtractBatch)
		r.Get("/api/stats/llm", s.handleModelStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
