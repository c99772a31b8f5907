package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/stackoverfix/internal/classifier"
	"github.com/MikeSquared-Agency/stackoverfix/internal/session"
	"github.com/MikeSquared-Agency/stackoverfix/internal/store"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// Classifier decides whether an error needs documentation and refines an
// answer once documentation is supplied.
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (*classifier.Classification, string, error)
	Refine(ctx context.Context, previous, docName, docText string) (string, error)
}

// DocumentIndex finds documentation chunks near an embedding.
type DocumentIndex interface {
	NearestDocuments(ctx context.Context, library string, embedding []float64, k int) ([]store.Document, error)
}

// Deps are the collaborators the handlers use. Classifier, Sessions and Docs
// may be nil; the routes that need them then answer 503.
type Deps struct {
	Normalizer *trace.Normalizer
	Classifier Classifier
	Sessions   session.Store
	Docs       DocumentIndex
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	http   *http.Server
	deps   Deps
	logger *slog.Logger
}

func NewServer(port int, apiToken string, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/stackoverfix/status", s.status)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/normalize", s.normalize)
			r.Post("/analyze_error", s.analyzeError)
			r.Post("/submit_documents", s.submitDocuments)
			r.Post("/docs/search", s.searchDocs)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	root := ""
	if s.deps.Normalizer != nil {
		root = s.deps.Normalizer.Classifier().Root()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":         "stackoverfix",
		"status":        "ready",
		"packages_root": root,
		"classifier":    s.deps.Classifier != nil,
		"doc_index":     s.deps.Docs != nil,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
