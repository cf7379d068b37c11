package api

import (
	"net/http"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/scoring"
)

type tierInfo struct {
	Tier          domain.Tier `json:"tier"`
	Min           float64     `json:"min"`
	PriorityLabel string      `json:"priority_label"`
	Description   string      `json:"description"`
}

type rulesResponse struct {
	Table scoring.RuleTable `json:"table"`
	Tiers []tierInfo        `json:"tiers"`
}

// GetScoringRules returns the rule table in use.
//
//	GET /api/scoring/rules
func (h *Handlers) GetScoringRules(w http.ResponseWriter, r *http.Request) {
	table := h.Contacts.Scorer().Table()
	out := rulesResponse{Table: table, Tiers: make([]tierInfo, 0, len(table.Tiers))}
	for _, c := range table.Tiers {
		out.Tiers = append(out.Tiers, tierInfo{
			Tier:          c.Tier,
			Min:           c.Min,
			PriorityLabel: scoring.PriorityLabel(c.Tier),
			Description:   scoring.TierDescription(c.Tier),
		})
	}
	httputil.OK(w, out)
}

// RescoreAll recomputes every stored score with the current rule table.
//
//	POST /api/scoring/rescore
func (h *Handlers) RescoreAll(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Contacts.RescoreAll(r.Context(), h.now())
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.OK(w, sum)
}
