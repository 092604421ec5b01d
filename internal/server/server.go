// Package server exposes patch evaluation over HTTP: an upload form, a
// JSON API, and the evaluation history.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/patchjudge/patchjudge/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Runner executes one evaluation. *eval.Service satisfies it.
type Runner interface {
	Evaluate(ctx context.Context, req model.EvaluationRequest) (*model.EvaluationResult, error)
}

// HistoryLister reads back recorded evaluations. *history.Store satisfies it.
type HistoryLister interface {
	Recent(limit int) ([]model.EvaluationResult, error)
}

// Options configures the HTTP server.
type Options struct {
	// Models populates the model selector on the form.
	Models []string
	// DefaultModel preselects a model on the form.
	DefaultModel string
	// RateLimitPerMinute throttles evaluation requests per client IP.
	// Zero disables limiting.
	RateLimitPerMinute int
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	runner  Runner
	history HistoryLister
	opts    Options
	tmpl    *template.Template
}

// New builds a Server. history may be nil when no store is configured.
func New(runner Runner, history HistoryLister, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, err
	}
	if len(opts.Models) == 0 {
		opts.Models = []string{"gpt-5.1", "deepseek-v3-2", "claude-sonnet-4-5"}
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = opts.Models[0]
	}
	if !slices.Contains(opts.Models, opts.DefaultModel) {
		opts.Models = append([]string{opts.DefaultModel}, opts.Models...)
	}
	return &Server{
		runner:  runner,
		history: history,
		opts:    opts,
		tmpl:    tmpl,
	}, nil
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)

	// Evaluation routes carry the outbound LLM call, so they get the
	// per-IP rate limit.
	r.Group(func(r chi.Router) {
		if s.opts.RateLimitPerMinute > 0 {
			r.Use(perIPRateLimit(s.opts.RateLimitPerMinute))
		}
		r.Post("/evaluate", s.handleEvaluateForm)
		r.Post("/api/evaluate", s.handleAPIEvaluate)
	})

	r.Get("/api/evaluations", s.handleListEvaluations)

	return r
}

// HTTPServer wraps the router in an *http.Server with sane timeouts.
// Write timeout leaves room for the LLM round trip.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}
}
