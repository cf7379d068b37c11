package scoring

import (
	"math"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Contribution is the share of the score one rule added.
type Contribution struct {
	Rule   string  `json:"rule"`
	Points float64 `json:"points"`
}

// Result is the outcome of scoring one set of signals.
type Result struct {
	Score         float64        `json:"score"`
	Tier          domain.Tier    `json:"tier"`
	Version       string         `json:"version"`
	Label         string         `json:"priority_label"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// Engine scores signals against one validated rule table. It is immutable
// and safe for concurrent use.
type Engine struct {
	table RuleTable
}

// New validates table and returns an engine for it.
func New(table RuleTable) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Engine{table: table}, nil
}

// MustDefault returns an engine over DefaultRules.
func MustDefault() *Engine {
	e, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return e
}

// Table returns the rule table the engine scores with.
func (e *Engine) Table() RuleTable { return e.table }

// Score computes the weighted sum of signals, capped to [0, max_score], and
// its tier.
func (e *Engine) Score(s domain.Signals) Result {
	var total float64
	var parts []Contribution
	for _, r := range e.table.Rules {
		if ruleMatches(r, s) && r.Points > 0 {
			total += r.Points
			parts = append(parts, Contribution{Rule: r.Name, Points: r.Points})
		}
	}
	if pts, ok := e.table.SegmentPoints[s.Segment]; ok && pts > 0 {
		total += pts
		parts = append(parts, Contribution{Rule: "segment:" + string(s.Segment), Points: pts})
	}
	total = clamp(total, 0, e.table.MaxScore)

	tier := e.TierFor(total)
	return Result{
		Score:         total,
		Tier:          tier,
		Version:       e.table.Version,
		Label:         PriorityLabel(tier),
		Contributions: parts,
	}
}

// TierFor maps a score to its tier. Cut-points are strictly decreasing, so
// every score maps to exactly one tier and higher scores never map to a
// worse tier.
func (e *Engine) TierFor(score float64) domain.Tier {
	if math.IsNaN(score) {
		return domain.NonTarget
	}
	for _, c := range e.table.Tiers {
		if score >= c.Min {
			return c.Tier
		}
	}
	return domain.NonTarget
}

// Apply recomputes and stores the ICP fields of c from its current signals.
// It reports whether score or tier changed.
func (e *Engine) Apply(c *domain.Contact) (Result, bool) {
	res := e.Score(c.Signals)
	changed := c.ICPScore != res.Score || c.ICPTier != res.Tier
	c.ICPScore = res.Score
	c.ICPTier = res.Tier
	c.ICPRulesVersion = res.Version
	return res, changed
}

func ruleMatches(r Rule, s domain.Signals) bool {
	for _, name := range r.AnyOf {
		if v, _ := s.Flag(name); v {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PriorityLabel is the display label for a tier.
func PriorityLabel(t domain.Tier) string {
	switch t {
	case domain.Tier1:
		return "immediate outreach"
	case domain.Tier2:
		return "qualified nurture"
	default:
		return "low priority"
	}
}

// TierDescription describes who typically lands in a tier.
func TierDescription(t domain.Tier) string {
	switch t {
	case domain.Tier1:
		return "Top priority targets: chemical and tire recycling, food-grade packaging"
	case domain.Tier2:
		return "Strong fit: eco-organisations, flexible packaging, compounders"
	case domain.Tier3:
		return "Secondary opportunities: waste management, FMCG brands, equipment providers"
	case domain.NonTarget:
		return "Not a target: certification bodies, consultants, tech companies"
	}
	return ""
}
