package domain

import (
	"strings"
	"time"
)

// ContactStatus tracks where a contact is in the outreach funnel.
type ContactStatus string

const (
	ContactNew           ContactStatus = "new"
	ContactContacted     ContactStatus = "contacted"
	ContactEngaged       ContactStatus = "engaged"
	ContactQualified     ContactStatus = "qualified"
	ContactMeetingBooked ContactStatus = "meeting_booked"
	ContactNotInterested ContactStatus = "not_interested"
	ContactBounced       ContactStatus = "bounced"
	ContactUnsubscribed  ContactStatus = "unsubscribed"
)

// Segment is the company classification used by ICP scoring.
type Segment string

const (
	SegmentChemicalRecycling  Segment = "chemical_recycling"
	SegmentTireRecycling      Segment = "tire_recycling"
	SegmentFoodGradePackaging Segment = "food_grade_packaging"
	SegmentEcoOrganisme       Segment = "eco_organisme"
	SegmentFlexiblePackaging  Segment = "flexible_packaging"
	SegmentPlasticCompounder  Segment = "plastic_compounder"
	SegmentWasteManagement    Segment = "waste_management"
	SegmentFMCGBrand          Segment = "fmcg_brand"
	SegmentEquipmentProvider  Segment = "equipment_provider"
	SegmentCertificationBody  Segment = "certification_body"
	SegmentConsultant         Segment = "consultant"
	SegmentTechCompany        Segment = "tech_company"
	SegmentOther              Segment = "other"
)

// Segments lists every known segment.
var Segments = []Segment{
	SegmentChemicalRecycling, SegmentTireRecycling, SegmentFoodGradePackaging,
	SegmentEcoOrganisme, SegmentFlexiblePackaging, SegmentPlasticCompounder,
	SegmentWasteManagement, SegmentFMCGBrand, SegmentEquipmentProvider,
	SegmentCertificationBody, SegmentConsultant, SegmentTechCompany, SegmentOther,
}

// Valid reports whether s is a known segment. The empty segment is valid and
// means "not classified yet".
func (s Segment) Valid() bool {
	if s == "" {
		return true
	}
	for _, known := range Segments {
		if s == known {
			return true
		}
	}
	return false
}

// Tier is the priority bucket derived from the ICP score.
type Tier string

const (
	Tier1     Tier = "tier_1"
	Tier2     Tier = "tier_2"
	Tier3     Tier = "tier_3"
	NonTarget Tier = "non_target"
)

// Rank orders tiers for prioritisation: lower is more important. Unknown
// tiers sort after every known one.
func (t Tier) Rank() int {
	switch t {
	case Tier1:
		return 0
	case Tier2:
		return 1
	case Tier3:
		return 2
	case NonTarget:
		return 3
	default:
		return 4
	}
}

// Boolean signal names, as used by scoring rule tables.
const (
	SignalCertified               = "certified"
	SignalCertificationInProgress = "certification_in_progress"
	SignalMultiSiteRegion         = "multi_site_region"
	SignalRegulatoryExposure      = "regulatory_exposure"
	SignalHeadcountOverThreshold  = "headcount_over_threshold"
	SignalVisibleBudget           = "visible_budget"
)

// SignalNames lists every boolean signal a rule may reference.
var SignalNames = []string{
	SignalCertified,
	SignalCertificationInProgress,
	SignalMultiSiteRegion,
	SignalRegulatoryExposure,
	SignalHeadcountOverThreshold,
	SignalVisibleBudget,
}

// Signals holds the ICP inputs of a contact.
type Signals struct {
	Segment                 Segment `json:"segment" db:"segment"`
	Certified               bool    `json:"certified" db:"certified"`
	CertificationInProgress bool    `json:"certification_in_progress" db:"certification_in_progress"`
	MultiSiteRegion         bool    `json:"multi_site_region" db:"multi_site_region"`
	RegulatoryExposure      bool    `json:"regulatory_exposure" db:"regulatory_exposure"`
	HeadcountOverThreshold  bool    `json:"headcount_over_threshold" db:"headcount_over_threshold"`
	VisibleBudget           bool    `json:"visible_budget" db:"visible_budget"`
}

// Flag returns the value of a boolean signal by name.
func (s Signals) Flag(name string) (value, known bool) {
	switch name {
	case SignalCertified:
		return s.Certified, true
	case SignalCertificationInProgress:
		return s.CertificationInProgress, true
	case SignalMultiSiteRegion:
		return s.MultiSiteRegion, true
	case SignalRegulatoryExposure:
		return s.RegulatoryExposure, true
	case SignalHeadcountOverThreshold:
		return s.HeadcountOverThreshold, true
	case SignalVisibleBudget:
		return s.VisibleBudget, true
	}
	return false, false
}

// SignalsPatch is a partial update of signals. Nil fields are left unchanged.
type SignalsPatch struct {
	Segment                 *Segment `json:"segment,omitempty"`
	Certified               *bool    `json:"certified,omitempty"`
	CertificationInProgress *bool    `json:"certification_in_progress,omitempty"`
	MultiSiteRegion         *bool    `json:"multi_site_region,omitempty"`
	RegulatoryExposure      *bool    `json:"regulatory_exposure,omitempty"`
	HeadcountOverThreshold  *bool    `json:"headcount_over_threshold,omitempty"`
	VisibleBudget           *bool    `json:"visible_budget,omitempty"`
}

// Apply returns s with the non-nil fields of p applied.
func (p SignalsPatch) Apply(s Signals) Signals {
	if p.Segment != nil {
		s.Segment = *p.Segment
	}
	if p.Certified != nil {
		s.Certified = *p.Certified
	}
	if p.CertificationInProgress != nil {
		s.CertificationInProgress = *p.CertificationInProgress
	}
	if p.MultiSiteRegion != nil {
		s.MultiSiteRegion = *p.MultiSiteRegion
	}
	if p.RegulatoryExposure != nil {
		s.RegulatoryExposure = *p.RegulatoryExposure
	}
	if p.HeadcountOverThreshold != nil {
		s.HeadcountOverThreshold = *p.HeadcountOverThreshold
	}
	if p.VisibleBudget != nil {
		s.VisibleBudget = *p.VisibleBudget
	}
	return s
}

// Contact is a person that can be enrolled in sequences.
type Contact struct {
	ID        string        `json:"id" db:"id"`
	Email     string        `json:"email" db:"email"`
	FirstName string        `json:"first_name" db:"first_name"`
	LastName  string        `json:"last_name" db:"last_name"`
	Phone     string        `json:"phone" db:"phone"`
	Company   string        `json:"company" db:"company"`
	JobTitle  string        `json:"job_title" db:"job_title"`
	Industry  string        `json:"industry" db:"industry"`
	Status    ContactStatus `json:"status" db:"status"`

	Signals Signals `json:"signals"`

	ICPScore        float64 `json:"icp_score" db:"icp_score"`
	ICPTier         Tier    `json:"icp_tier" db:"icp_tier"`
	ICPRulesVersion string  `json:"icp_rules_version" db:"icp_rules_version"`

	EmailsSent      int        `json:"emails_sent" db:"emails_sent"`
	EmailsOpened    int        `json:"emails_opened" db:"emails_opened"`
	EmailsClicked   int        `json:"emails_clicked" db:"emails_clicked"`
	LastContactedAt *time.Time `json:"last_contacted_at" db:"last_contacted_at"`
	LastRepliedAt   *time.Time `json:"last_replied_at" db:"last_replied_at"`
	IsUnsubscribed  bool       `json:"is_unsubscribed" db:"is_unsubscribed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the display name, falling back to the email address.
func (c *Contact) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return c.Email
	}
	return name
}

// TemplateVars returns the variables available to email templates.
func (c *Contact) TemplateVars() map[string]any {
	return map[string]any{
		"firstName": c.FirstName,
		"lastName":  c.LastName,
		"fullName":  c.FullName(),
		"email":     c.Email,
		"company":   c.Company,
		"jobTitle":  c.JobTitle,
		"industry":  c.Industry,
	}
}

// ContactTouch is an engagement update applied together with an enrollment
// transition.
type ContactTouch struct {
	ContactID       string
	IncEmailsSent   bool
	LastContactedAt *time.Time
	LastRepliedAt   *time.Time
	// SetStatus replaces the contact status. PromoteNew only moves a
	// contact out of "new".
	SetStatus  ContactStatus
	PromoteNew ContactStatus
	// Unsubscribe sets is_unsubscribed.
	Unsubscribe bool
	At          time.Time
}

// ApplyTo mutates c the way the repositories apply the touch in SQL.
func (t ContactTouch) ApplyTo(c *Contact) {
	if t.IncEmailsSent {
		c.EmailsSent++
	}
	if t.LastContactedAt != nil {
		v := *t.LastContactedAt
		c.LastContactedAt = &v
	}
	if t.LastRepliedAt != nil {
		v := *t.LastRepliedAt
		c.LastRepliedAt = &v
	}
	if t.PromoteNew != "" && c.Status == ContactNew {
		c.Status = t.PromoteNew
	}
	if t.SetStatus != "" {
		c.Status = t.SetStatus
	}
	if t.Unsubscribe {
		c.IsUnsubscribed = true
	}
	c.UpdatedAt = t.At
}
