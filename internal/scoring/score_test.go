package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
)

func TestTierMappingIsTotalAndMonotonic(t *testing.T) {
	e := MustDefault()
	cases := []struct {
		score float64
		want  domain.Tier
	}{
		{0, domain.NonTarget},
		{2.9, domain.NonTarget},
		{3, domain.Tier3},
		{4.9, domain.Tier3},
		{5, domain.Tier2},
		{7.9, domain.Tier2},
		{8, domain.Tier1},
		{10, domain.Tier1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.TierFor(tc.score), "score %.1f", tc.score)
	}

	prev := e.TierFor(0).Rank()
	for s := 0.0; s <= 10.0; s += 0.05 {
		r := e.TierFor(s).Rank()
		assert.LessOrEqual(t, r, prev, "tier got worse at %.2f", s)
		prev = r
	}
}

func TestScoreDefaultWeights(t *testing.T) {
	e := MustDefault()

	res := e.Score(domain.Signals{})
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, domain.NonTarget, res.Tier)
	assert.Equal(t, "low priority", res.Label)

	// Certified and in progress share one rule: +3, not +6.
	res = e.Score(domain.Signals{Certified: true, CertificationInProgress: true})
	assert.Equal(t, 3.0, res.Score)
	assert.Equal(t, domain.Tier3, res.Tier)

	full := domain.Signals{
		Segment:                domain.SegmentTireRecycling,
		Certified:              true,
		MultiSiteRegion:        true,
		RegulatoryExposure:     true,
		HeadcountOverThreshold: true,
		VisibleBudget:          true,
	}
	res = e.Score(full)
	assert.Equal(t, 10.0, res.Score)
	assert.Equal(t, domain.Tier1, res.Tier)
	assert.Equal(t, "immediate outreach", res.Label)
	assert.Equal(t, "default-1", res.Version)
	assert.Len(t, res.Contributions, 6)

	res = e.Score(domain.Signals{Segment: domain.SegmentWasteManagement, MultiSiteRegion: true, RegulatoryExposure: true, VisibleBudget: true})
	assert.Equal(t, 4.0, res.Score)
	assert.Equal(t, domain.Tier3, res.Tier)
}

func TestScoreIsCapped(t *testing.T) {
	table := DefaultRules()
	table.Version = "heavy"
	table.Rules[0].Points = 9
	e, err := New(table)
	require.NoError(t, err)

	res := e.Score(domain.Signals{Certified: true, MultiSiteRegion: true, VisibleBudget: true})
	assert.Equal(t, 10.0, res.Score)
}

func TestFractionalWeights(t *testing.T) {
	table := DefaultRules()
	table.Version = "fractional"
	table.Rules[0].Points = 3.2
	e, err := New(table)
	require.NoError(t, err)

	res := e.Score(domain.Signals{Certified: true, MultiSiteRegion: true, Segment: domain.SegmentChemicalRecycling, VisibleBudget: true})
	assert.InDelta(t, 8.2, res.Score, 1e-9)
	assert.Equal(t, domain.Tier1, res.Tier)
}

func TestApplyReportsChange(t *testing.T) {
	e := MustDefault()
	c := &domain.Contact{Signals: domain.Signals{Certified: true}}

	_, changed := e.Apply(c)
	assert.True(t, changed)
	assert.Equal(t, 3.0, c.ICPScore)
	assert.Equal(t, domain.Tier3, c.ICPTier)
	assert.Equal(t, "default-1", c.ICPRulesVersion)

	_, changed = e.Apply(c)
	assert.False(t, changed)
}

func TestValidateRejectsBadTables(t *testing.T) {
	mutate := map[string]func(*RuleTable){
		"no version":        func(r *RuleTable) { r.Version = "" },
		"negative weight":   func(r *RuleTable) { r.Rules[0].Points = -1 },
		"weight above max":  func(r *RuleTable) { r.Rules[0].Points = 11 },
		"unknown signal":    func(r *RuleTable) { r.Rules[0].AnyOf = []string{"has_boat"} },
		"duplicate rule":    func(r *RuleTable) { r.Rules[1].Name = r.Rules[0].Name },
		"unknown segment":   func(r *RuleTable) { r.SegmentPoints["space_mining"] = 1 },
		"overlapping tiers": func(r *RuleTable) { r.Tiers[1].Min = 8 },
		"tiers out of rank": func(r *RuleTable) { r.Tiers[0], r.Tiers[1] = r.Tiers[1], r.Tiers[0] },
		"non target cut":    func(r *RuleTable) { r.Tiers = append(r.Tiers, TierCut{Tier: domain.NonTarget, Min: 1}) },
		"cut above max":     func(r *RuleTable) { r.Tiers[0].Min = 12 },
		"no tiers":          func(r *RuleTable) { r.Tiers = nil },
	}
	for name, fn := range mutate {
		table := DefaultRules()
		fn(&table)
		err := table.Validate()
		if assert.Error(t, err, name) {
			assert.True(t, errors.Is(err, apperr.ErrValidation), name)
		}
	}
}

const yamlTable = `
version: "2026-q1"
max_score: 10
rules:
  - name: certification
    any_of: [certified, certification_in_progress]
    points: 4
  - name: budget
    any_of: [visible_budget]
    points: 1.5
segment_points:
  food_grade_packaging: 3
tiers:
  - tier: tier_1
    min: 7
  - tier: tier_2
    min: 4
  - tier: tier_3
    min: 2
`

func TestParseRules(t *testing.T) {
	table, err := ParseRules([]byte(yamlTable))
	require.NoError(t, err)
	assert.Equal(t, "2026-q1", table.Version)

	e, err := New(table)
	require.NoError(t, err)
	res := e.Score(domain.Signals{Certified: true, Segment: domain.SegmentFoodGradePackaging})
	assert.Equal(t, 7.0, res.Score)
	assert.Equal(t, domain.Tier1, res.Tier)

	_, err = ParseRules([]byte("version: x\nweights: {a: 1}\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := DefaultRules().Encode()
	require.NoError(t, err)
	table, err := ParseRules(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), table)
}

type mapReader map[string][]byte

func (m mapReader) Read(_ context.Context, key string) ([]byte, error) {
	b, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

func TestLoad(t *testing.T) {
	src := mapReader{"rules.yaml": []byte(yamlTable)}
	table, err := Load(context.Background(), src, "rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, "2026-q1", table.Version)

	_, err = Load(context.Background(), src, "missing.yaml")
	assert.Error(t, err)
}

func TestDetectSegment(t *testing.T) {
	assert.Equal(t, domain.Segment(""), DetectSegment("  "))
	assert.Equal(t, domain.SegmentTireRecycling, DetectSegment("Bolder Industries"))
	assert.Equal(t, domain.SegmentChemicalRecycling, DetectSegment("Plastic Energy Ltd"))
	assert.Equal(t, domain.SegmentWasteManagement, DetectSegment("VEOLIA"))
	assert.Equal(t, domain.SegmentOther, DetectSegment("Acme Widgets"))
}
