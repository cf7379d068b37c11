package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/service/template"
)

// CreateTemplate handles POST /api/templates. Variables a contact cannot
// provide come back as warnings and do not block creation.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in template.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	out, err := h.Templates.Create(r.Context(), in, h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.Created(w, out)
}

// ListTemplates handles GET /api/templates?active=true
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Templates.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	if list == nil {
		list = []domain.EmailTemplate{}
	}
	httputil.OK(w, map[string]any{"templates": list, "total": len(list)})
}

// GetTemplate handles GET /api/templates/{id}
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, t)
}

// PreviewTemplate handles POST /api/templates/preview
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var in template.PreviewInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	out, err := h.Templates.Preview(r.Context(), in)
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, out)
}

// TemplateVariables handles GET /api/templates/variables
func (h *Handlers) TemplateVariables(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.Templates.Variables())
}
