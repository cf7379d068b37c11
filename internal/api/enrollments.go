package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
)

type transitionFunc func(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error)

// transition runs fn for the {id} enrollment with the optional expected
// version from the body and writes the updated enrollment.
func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	var req versionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	e, err := fn(r.Context(), chi.URLParam(r, "id"), h.now(), req.ExpectedVersion)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, e)
}

// GetEnrollment handles GET /api/enrollments/{id}
func (h *Handlers) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	e, err := h.Enrollments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, e)
}

// ListActivities handles GET /api/enrollments/{id}/activities
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	list, err := h.Enrollments.Activities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Activity{}
	}
	httputil.OK(w, map[string]any{"activities": list, "total": len(list)})
}

// DeleteEnrollment removes the enrollment row so the contact can be
// enrolled again. Its activities are kept.
//
//	DELETE /api/enrollments/{id}
func (h *Handlers) DeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	if err := h.Enrollments.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) PauseEnrollment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.Pause)
}

func (h *Handlers) ResumeEnrollment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.Resume)
}

func (h *Handlers) MarkBounced(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.MarkBounced)
}

func (h *Handlers) Unenroll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.Unenroll)
}
