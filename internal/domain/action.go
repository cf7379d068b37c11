package domain

import "time"

// DueEnrollment is an enrollment selected for materialization, joined with
// the rows needed to describe it.
type DueEnrollment struct {
	Enrollment Enrollment
	Contact    Contact
	Sequence   Sequence // Steps is not populated
	Step       Step
	Template   *EmailTemplate
}

// TodayAction is one row of the daily action list. Never stored.
type TodayAction struct {
	EnrollmentID string `json:"id"`
	Version      int64  `json:"version"`

	ContactID      string  `json:"contact_id"`
	ContactName    string  `json:"contact_name"`
	ContactEmail   string  `json:"contact_email"`
	ContactCompany string  `json:"contact_company,omitempty"`
	ICPTier        Tier    `json:"icp_tier"`
	ICPScore       float64 `json:"icp_score"`

	SequenceID   string   `json:"sequence_id"`
	SequenceName string   `json:"sequence_name"`
	StepIndex    int      `json:"step_index"`
	StepNumber   int      `json:"step_number"`
	StepType     StepType `json:"step_type"`

	TemplateID     string `json:"template_id,omitempty"`
	TemplateName   string `json:"template_name,omitempty"`
	SubjectPreview string `json:"subject_preview,omitempty"`
	Description    string `json:"task_description,omitempty"`

	DueAt   time.Time `json:"scheduled_at"`
	Overdue bool      `json:"overdue"`
}

// TodayActions is the materialized list plus its per-type counts.
type TodayActions struct {
	Date         string        `json:"date"`
	TotalActions int           `json:"total_actions"`
	EmailActions int           `json:"email_actions"`
	CallActions  int           `json:"call_actions"`
	OtherActions int           `json:"other_actions"`
	Actions      []TodayAction `json:"actions"`
}

// ComposedEmail is a fully rendered email for the current step of an
// enrollment.
type ComposedEmail struct {
	EnrollmentID string `json:"enrollment_id"`
	ContactID    string `json:"contact_id"`
	ToEmail      string `json:"to_email"`
	ToName       string `json:"to_name"`
	Subject      string `json:"subject"`
	BodyHTML     string `json:"body_html"`
	BodyText     string `json:"body_text"`
	SequenceID   string `json:"sequence_id"`
	StepNumber   int    `json:"step_number"`
	Unsubscribed bool   `json:"unsubscribed"`
}
