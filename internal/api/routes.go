package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
)

// SetupRoutes configures all API routes
func SetupRoutes(h *Handlers, origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health.HandleHealth)
	r.Get("/health/live", h.Health.HandleLiveness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/actions", func(r chi.Router) {
			r.Get("/today", h.GetTodayActions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/compose", h.ComposeEmail)
				r.Post("/execute-email", h.ExecuteEmail)
				r.Post("/execute-call", h.ExecuteCall)
				r.Post("/skip", h.SkipAction)
				r.Post("/replied", h.MarkReplied)
			})
		})

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", h.ListSequences)
			r.Post("/", h.CreateSequence)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSequence)
				r.Post("/steps", h.AddStep)
				r.Put("/status", h.UpdateSequenceStatus)
				r.Post("/enroll", h.Enroll)
				r.Post("/enroll-bulk", h.BulkEnroll)
				r.Get("/enrollments", h.ListEnrollments)
			})
		})

		r.Route("/enrollments/{id}", func(r chi.Router) {
			r.Get("/", h.GetEnrollment)
			r.Delete("/", h.DeleteEnrollment)
			r.Get("/activities", h.ListActivities)
			r.Post("/pause", h.PauseEnrollment)
			r.Post("/resume", h.ResumeEnrollment)
			r.Post("/bounced", h.MarkBounced)
			r.Post("/unenroll", h.Unenroll)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Post("/", h.CreateContact)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetContact)
				r.Get("/activities", h.ListContactActivities)
				r.Put("/signals", h.UpdateSignals)
				r.Post("/unsubscribe", h.Unsubscribe)
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Post("/preview", h.PreviewTemplate)
			r.Get("/variables", h.TemplateVariables)
			r.Get("/{id}", h.GetTemplate)
		})

		r.Get("/dashboard/stats", h.GetDashboardStats)

		r.Get("/scoring/rules", h.GetScoringRules)
		r.Post("/scoring/rescore", h.RescoreAll)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "route not found", Code: "not_found"})
	})

	return r
}
