package scoring

import (
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
)

type segmentKeywords struct {
	segment  domain.Segment
	keywords []string
}

// Checked in order; the first match wins.
var segmentTable = []segmentKeywords{
	{domain.SegmentChemicalRecycling, []string{"pyrolysis", "chemical recycl", "plastic energy", "mura", "quantafuel", "pyrowave"}},
	{domain.SegmentTireRecycling, []string{"tire", "tyre", "pneu", "bolder", "contec", "pyrum", "aliapur", "tyval"}},
	{domain.SegmentFoodGradePackaging, []string{"food grade", "food-grade", "packaging recycl"}},
	{domain.SegmentEcoOrganisme, []string{"citeo", "ecoembes", "valorplast", "eco-organisme", "éco-organisme"}},
	{domain.SegmentFlexiblePackaging, []string{"amcor", "berry", "constantia", "flexible", "converter"}},
	{domain.SegmentPlasticCompounder, []string{"borealis", "ineos", "lyondellbasell", "compounder", "compound"}},
	{domain.SegmentWasteManagement, []string{"veolia", "suez", "prezero", "remondis", "waste", "déchet"}},
	{domain.SegmentFMCGBrand, []string{"danone", "nestlé", "nestle", "henkel", "unilever", "procter", "p&g"}},
	{domain.SegmentEquipmentProvider, []string{"erema", "grey parrot", "tomra", "sorting", "equipment"}},
}

// DetectSegment guesses a segment from a company name. It returns "" for an
// empty name and SegmentOther when nothing matches.
func DetectSegment(company string) domain.Segment {
	name := strings.ToLower(strings.TrimSpace(company))
	if name == "" {
		return ""
	}
	for _, row := range segmentTable {
		for _, kw := range row.keywords {
			if strings.Contains(name, kw) {
				return row.segment
			}
		}
	}
	return domain.SegmentOther
}
