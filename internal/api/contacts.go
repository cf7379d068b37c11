package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/contact"
)

type unsubscribeResponse struct {
	ContactID string              `json:"contact_id"`
	Ended     []domain.Enrollment `json:"ended_enrollments"`
}

// CreateContact handles POST /api/contacts. The ICP score is computed on
// creation.
func (h *Handlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	var in contact.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.Contacts.Create(r.Context(), in, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.Created(w, c)
}

// ListContacts handles GET /api/contacts?tier=&status=&search=&limit=&offset=
func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := contact.ListFilter{
		Tier:   domain.Tier(q.Get("tier")),
		Status: domain.ContactStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.Fail(w, apperr.Validationf("%s must be a non-negative integer", name))
			return
		}
		*dst = n
	}
	list, err := h.Contacts.List(r.Context(), f)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Contact{}
	}
	httputil.OK(w, map[string]any{"contacts": list, "total": len(list)})
}

// GetContact handles GET /api/contacts/{id}
func (h *Handlers) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.Contacts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, c)
}

// ListContactActivities handles GET /api/contacts/{id}/activities?limit=
// Newest first across all of the contact's enrollments.
func (h *Handlers) ListContactActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Fail(w, apperr.Validationf("limit must be an integer"))
			return
		}
		limit = n
	}
	list, err := h.Contacts.Activities(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Activity{}
	}
	httputil.OK(w, map[string]any{"activities": list, "total": len(list)})
}

// UpdateSignals patches the ICP signals and returns the new score with its
// breakdown. Fields left out of the body keep their value.
//
//	PUT /api/contacts/{id}/signals
func (h *Handlers) UpdateSignals(w http.ResponseWriter, r *http.Request) {
	var patch domain.SignalsPatch
	if !httputil.Decode(w, r, &patch) {
		return
	}
	res, err := h.Contacts.UpdateSignals(r.Context(), chi.URLParam(r, "id"), patch, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, res)
}

// Unsubscribe marks the contact unsubscribed and ends all of its live
// enrollments.
//
//	POST /api/contacts/{id}/unsubscribe
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ended, err := h.Enrollments.Unsubscribe(r.Context(), id, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if ended == nil {
		ended = []domain.Enrollment{}
	}
	httputil.OK(w, unsubscribeResponse{ContactID: id, Ended: ended})
}
