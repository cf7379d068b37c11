package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/delivery"
	"github.com/ignite/outreach-engine/internal/service/actions"
	"github.com/ignite/outreach-engine/internal/service/contact"
	"github.com/ignite/outreach-engine/internal/service/dashboard"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
	"github.com/ignite/outreach-engine/internal/service/template"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Contacts    *contact.Service
	Sequences   *sequence.Service
	Templates   *template.Service
	Enrollments *enrollment.Service
	Actions     *actions.Service
	Dashboard   *dashboard.Service
	Mailer      delivery.Mailer
	Health      *HealthChecker

	// Clock is the only source of "now" for every operation. Defaults to
	// time.Now.
	Clock func() time.Time
}

// Handlers implements the HTTP endpoints on top of Deps.
type Handlers struct {
	Deps
}

// NewHandlers fills in defaults for optional dependencies.
func NewHandlers(d Deps) *Handlers {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Mailer == nil {
		d.Mailer = delivery.DryRun{}
	}
	if d.Health == nil {
		d.Health = NewHealthChecker(nil, nil)
	}
	return &Handlers{Deps: d}
}

func (h *Handlers) now() time.Time { return h.Clock() }

// Server represents the API server
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	h := NewHandlers(deps)
	return &Server{
		config:   cfg,
		handler:  SetupRoutes(h, cfg.CORSOrigins),
		handlers: h,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.config.WriteTimeout(),
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
