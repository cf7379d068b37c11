package api

import (
	"net/http"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
)

// GetDashboardStats handles GET /api/dashboard/stats
func (h *Handlers) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context(), h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, stats)
}
