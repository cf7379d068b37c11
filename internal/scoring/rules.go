// Package scoring computes the ICP (ideal customer profile) score of a
// contact from its signal flags.
//
// The weighting lives in a RuleTable, which is plain data loaded from YAML,
// so re-weighting never touches code. Scoring is a pure function of the
// signals and the table.
package scoring

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
)

// Rule awards Points when any of the listed boolean signals is set.
type Rule struct {
	Name   string   `yaml:"name" json:"name"`
	AnyOf  []string `yaml:"any_of" json:"any_of"`
	Points float64  `yaml:"points" json:"points"`
}

// TierCut maps scores >= Min to Tier.
type TierCut struct {
	Tier domain.Tier `yaml:"tier" json:"tier"`
	Min  float64     `yaml:"min" json:"min"`
}

// RuleTable is a versioned weighting of signals plus the tier cut-points.
type RuleTable struct {
	Version       string                     `yaml:"version" json:"version"`
	MaxScore      float64                    `yaml:"max_score" json:"max_score"`
	Rules         []Rule                     `yaml:"rules" json:"rules"`
	SegmentPoints map[domain.Segment]float64 `yaml:"segment_points" json:"segment_points"`
	Tiers         []TierCut                  `yaml:"tiers" json:"tiers"`
}

// DefaultRules returns the stock weighting:
//
//	certified or certification in progress  +3
//	multi-site in region                    +2
//	chemical or tire recycling segment      +2
//	regulatory exposure                     +1
//	headcount over threshold                +1
//	visible budget                          +1
func DefaultRules() RuleTable {
	return RuleTable{
		Version:  "default-1",
		MaxScore: 10,
		Rules: []Rule{
			{Name: "certification", AnyOf: []string{domain.SignalCertified, domain.SignalCertificationInProgress}, Points: 3},
			{Name: "multi_site_region", AnyOf: []string{domain.SignalMultiSiteRegion}, Points: 2},
			{Name: "regulatory_exposure", AnyOf: []string{domain.SignalRegulatoryExposure}, Points: 1},
			{Name: "headcount", AnyOf: []string{domain.SignalHeadcountOverThreshold}, Points: 1},
			{Name: "visible_budget", AnyOf: []string{domain.SignalVisibleBudget}, Points: 1},
		},
		SegmentPoints: map[domain.Segment]float64{
			domain.SegmentChemicalRecycling: 2,
			domain.SegmentTireRecycling:     2,
		},
		Tiers: []TierCut{
			{Tier: domain.Tier1, Min: 8},
			{Tier: domain.Tier2, Min: 5},
			{Tier: domain.Tier3, Min: 3},
		},
	}
}

// Validate rejects tables whose weights or cut-points are out of range, or
// whose tiers would overlap.
func (t RuleTable) Validate() error {
	if t.Version == "" {
		return apperr.Validationf("rule table: version is required")
	}
	if t.MaxScore <= 0 {
		return apperr.Validationf("rule table %s: max_score must be positive", t.Version)
	}

	known := make(map[string]bool, len(domain.SignalNames))
	for _, n := range domain.SignalNames {
		known[n] = true
	}
	names := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if r.Name == "" {
			return apperr.Validationf("rule table %s: rule without a name", t.Version)
		}
		if names[r.Name] {
			return apperr.Validationf("rule table %s: duplicate rule %q", t.Version, r.Name)
		}
		names[r.Name] = true
		if len(r.AnyOf) == 0 {
			return apperr.Validationf("rule %q: any_of is empty", r.Name)
		}
		for _, s := range r.AnyOf {
			if !known[s] {
				return apperr.Validationf("rule %q: unknown signal %q", r.Name, s)
			}
		}
		if r.Points < 0 || r.Points > t.MaxScore {
			return apperr.Validationf("rule %q: points %.2f out of range [0, %.2f]", r.Name, r.Points, t.MaxScore)
		}
	}
	for seg, pts := range t.SegmentPoints {
		if seg == "" || !seg.Valid() {
			return apperr.Validationf("rule table %s: unknown segment %q", t.Version, seg)
		}
		if pts < 0 || pts > t.MaxScore {
			return apperr.Validationf("segment %q: points %.2f out of range [0, %.2f]", seg, pts, t.MaxScore)
		}
	}

	if len(t.Tiers) == 0 {
		return apperr.Validationf("rule table %s: no tiers", t.Version)
	}
	prevRank, prevMin := -1, 0.0
	for i, c := range t.Tiers {
		if c.Tier == domain.NonTarget || c.Tier.Rank() > domain.NonTarget.Rank() {
			return apperr.Validationf("tier %d: %q cannot have a cut-point", i, c.Tier)
		}
		if c.Tier.Rank() <= prevRank {
			return apperr.Validationf("tier %q: tiers must be listed best first without repeats", c.Tier)
		}
		if c.Min <= 0 || c.Min > t.MaxScore {
			return apperr.Validationf("tier %q: min %.2f out of range (0, %.2f]", c.Tier, c.Min, t.MaxScore)
		}
		if i > 0 && c.Min >= prevMin {
			return apperr.Validationf("tier %q: min %.2f must be below %.2f", c.Tier, c.Min, prevMin)
		}
		prevRank, prevMin = c.Tier.Rank(), c.Min
	}
	return nil
}

// ParseRules decodes and validates a YAML rule table. Unknown fields are
// rejected so a typo cannot silently drop a weight.
func ParseRules(data []byte) (RuleTable, error) {
	var t RuleTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return RuleTable{}, apperr.Validationf("parse rule table: %v", err)
	}
	if t.MaxScore == 0 {
		t.MaxScore = 10
	}
	if err := t.Validate(); err != nil {
		return RuleTable{}, err
	}
	return t, nil
}

// Encode renders the table in the on-disk format.
func (t RuleTable) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode rule table: %w", err)
	}
	return buf.Bytes(), nil
}
