package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// versionRequest is the body accepted by every single-enrollment action.
// ExpectedVersion is optional; when set the call fails with 409 if the
// enrollment moved on in the meantime.
type versionRequest struct {
	ExpectedVersion *int64 `json:"expected_version"`
}

type executeEmailRequest struct {
	Send            bool   `json:"send"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type executeEmailResponse struct {
	Enrollment *domain.Enrollment `json:"enrollment"`
	MessageID  string             `json:"message_id,omitempty"`
}

type executeCallRequest struct {
	Outcome         enrollment.CallOutcome `json:"outcome"`
	Notes           string                 `json:"notes"`
	ExpectedVersion *int64                 `json:"expected_version"`
}

// GetTodayActions lists the actions due by the end of ?date (default today)
// in the engine timezone.
//
//	GET /api/actions/today?date=YYYY-MM-DD
func (h *Handlers) GetTodayActions(w http.ResponseWriter, r *http.Request) {
	ref := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := schedule.ParseDate(raw, h.Actions.Location())
		if err != nil {
			httputil.Fail(w, apperr.Validationf("%v", err))
			return
		}
		ref = d
	}
	list, err := h.Actions.ListToday(r.Context(), ref)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, list)
}

// ComposeEmail renders the email for the current step without sending it.
//
//	GET /api/actions/{id}/compose
func (h *Handlers) ComposeEmail(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Actions.Compose(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, msg)
}

// ExecuteEmail resolves the current email step. With send=true the email is
// composed and handed to the mailer first, and the provider message id is
// recorded on the sent activity. A failed send leaves the enrollment as is.
//
//	POST /api/actions/{id}/execute-email
func (h *Handlers) ExecuteEmail(w http.ResponseWriter, r *http.Request) {
	var req executeEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var messageID string
	if req.Send {
		msg, err := h.Actions.Compose(ctx, id)
		if err != nil {
			httputil.Fail(w, err)
			return
		}
		if req.ExpectedVersion != nil {
			cur, err := h.Enrollments.Get(ctx, id)
			if err != nil {
				httputil.Fail(w, err)
				return
			}
			if cur.Version != *req.ExpectedVersion {
				httputil.Fail(w, enrollment.ErrStaleVersion)
				return
			}
		}
		if msg.Unsubscribed {
			httputil.Fail(w, apperr.New(apperr.KindInvalidTransition, "contact is unsubscribed"))
			return
		}
		messageID, err = h.Mailer.Send(ctx, *msg)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
	}

	e, err := h.Enrollments.ExecuteEmail(ctx, id, messageID, h.now(), req.ExpectedVersion)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, executeEmailResponse{Enrollment: e, MessageID: messageID})
}

// ExecuteCall records the outcome of the current call step.
//
//	POST /api/actions/{id}/execute-call
func (h *Handlers) ExecuteCall(w http.ResponseWriter, r *http.Request) {
	var req executeCallRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	e, err := h.Enrollments.LogCall(r.Context(), chi.URLParam(r, "id"), req.Outcome, req.Notes, h.now(), req.ExpectedVersion)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, e)
}

// SkipAction moves past the current step without executing it.
//
//	POST /api/actions/{id}/skip
func (h *Handlers) SkipAction(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.Skip)
}

// MarkReplied ends the enrollment because the contact replied.
//
//	POST /api/actions/{id}/replied
func (h *Handlers) MarkReplied(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Enrollments.MarkReplied)
}
