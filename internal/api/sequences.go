package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

type statusRequest struct {
	Status domain.SequenceStatus `json:"status"`
}

type enrollRequest struct {
	ContactID        string `json:"contact_id"`
	StartImmediately bool   `json:"start_immediately"`
}

type bulkEnrollRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

type bulkItem struct {
	ContactID  string             `json:"contact_id"`
	Enrollment *domain.Enrollment `json:"enrollment,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
}

type bulkEnrollResponse struct {
	Enrolled int        `json:"enrolled"`
	Skipped  int        `json:"skipped"`
	Failed   int        `json:"failed"`
	Items    []bulkItem `json:"items"`
}

// ListSequences handles GET /api/sequences?status=
func (h *Handlers) ListSequences(w http.ResponseWriter, r *http.Request) {
	list, err := h.Sequences.List(r.Context(), domain.SequenceStatus(r.URL.Query().Get("status")))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Sequence{}
	}
	httputil.OK(w, map[string]any{"sequences": list, "total": len(list)})
}

// CreateSequence handles POST /api/sequences. New sequences start as drafts.
func (h *Handlers) CreateSequence(w http.ResponseWriter, r *http.Request) {
	var in sequence.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	seq, err := h.Sequences.Create(r.Context(), in, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.Created(w, seq)
}

// GetSequence handles GET /api/sequences/{id}
func (h *Handlers) GetSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := h.Sequences.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, seq)
}

// AddStep appends a step to a draft sequence. An order of 0 means "after
// the last step".
//
//	POST /api/sequences/{id}/steps
func (h *Handlers) AddStep(w http.ResponseWriter, r *http.Request) {
	var st domain.Step
	if !httputil.Decode(w, r, &st) {
		return
	}
	out, err := h.Sequences.AddStep(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.Created(w, out)
}

// UpdateSequenceStatus handles PUT /api/sequences/{id}/status
func (h *Handlers) UpdateSequenceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		httputil.Fail(w, apperr.Validationf("unknown sequence status %q", req.Status))
		return
	}
	seq, err := h.Sequences.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, seq)
}

// Enroll handles POST /api/sequences/{id}/enroll
func (h *Handlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ContactID == "" {
		httputil.Fail(w, apperr.Validationf("contact_id is required"))
		return
	}
	e, err := h.Enrollments.Enroll(r.Context(), enrollment.EnrollInput{
		ContactID:        req.ContactID,
		SequenceID:       chi.URLParam(r, "id"),
		StartImmediately: req.StartImmediately,
	}, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.Created(w, e)
}

// BulkEnroll enrolls each contact independently and reports every item.
// The call itself only fails when the sequence does not exist.
//
//	POST /api/sequences/{id}/enroll-bulk
func (h *Handlers) BulkEnroll(w http.ResponseWriter, r *http.Request) {
	var req bulkEnrollRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.ContactIDs) == 0 {
		httputil.Fail(w, apperr.Validationf("contact_ids is required"))
		return
	}
	res, err := h.Enrollments.BulkEnroll(r.Context(), chi.URLParam(r, "id"), req.ContactIDs, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	out := bulkEnrollResponse{
		Enrolled: res.Enrolled,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
		Items:    make([]bulkItem, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		item := bulkItem{ContactID: it.ContactID, Enrollment: it.Enrollment}
		if it.Err != nil {
			item.Code = string(apperr.KindOf(it.Err))
			if item.Code == "" {
				logger.Error("bulk enroll item failed", "sequence_id", chi.URLParam(r, "id"), "contact_id", it.ContactID, "error", it.Err)
				item.Code = "internal"
				item.Error = "internal error"
			} else {
				item.Error = apperr.Message(it.Err)
			}
		}
		out.Items = append(out.Items, item)
	}
	httputil.OK(w, out)
}

// ListEnrollments handles GET /api/sequences/{id}/enrollments?status=
func (h *Handlers) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	status := domain.EnrollmentStatus(r.URL.Query().Get("status"))
	list, err := h.Enrollments.ListBySequence(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.Enrollment{}
	}
	httputil.OK(w, map[string]any{"enrollments": list, "total": len(list)})
}
