package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/pipeline"
)

// Server is the HTTP API server for docgraph.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	proc         *pipeline.Processor
	overrides    *config.File
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. overrides may be nil.
func NewServer(orch *pipeline.Orchestrator, proc *pipeline.Processor, overrides *config.File, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		proc:         proc,
		overrides:    overrides,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		r.Use(RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Get("/api/doctypes", s.handleDocTypes)
		r.Get("/api/stats", s.handleStats)
		r.Post("/api/parse", s.handleParse)

		r.Post("/api/documents", s.handleSubmit)
		r.Post("/api/documents/batch", s.handleBatchSubmit)
		r.Get("/api/documents/{jobID}/status", s.handleStatus)
		r.Get("/api/documents/{jobID}/graph", s.handleGraph)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleDocTypes lists the document types with their resolved parameters.
func (s *Server) handleDocTypes(w http.ResponseWriter, r *http.Request) {
	types := map[config.DocumentType]config.Parsing{}
	for _, t := range config.DocumentTypes() {
		p, err := config.Resolve(t, s.overrides)
		if err != nil {
			jsonError(w, err.Error(), statusFor(err))
			return
		}
		types[t] = p
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default":        s.cfg.DefaultDocType,
		"document_types": types,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
