package domain

import (
	"fmt"
	"time"
)

// SequenceStatus enumerates the lifecycle states of a sequence.
type SequenceStatus string

const (
	SequenceDraft    SequenceStatus = "draft"
	SequenceActive   SequenceStatus = "active"
	SequencePaused   SequenceStatus = "paused"
	SequenceArchived SequenceStatus = "archived"
)

// Valid reports whether s is a known sequence status.
func (s SequenceStatus) Valid() bool {
	switch s {
	case SequenceDraft, SequenceActive, SequencePaused, SequenceArchived:
		return true
	}
	return false
}

// StepType is the kind of touch-point a step represents.
type StepType string

const (
	StepEmail    StepType = "email"
	StepCall     StepType = "call"
	StepLinkedIn StepType = "linkedin"
	StepTask     StepType = "task"
)

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	switch t {
	case StepEmail, StepCall, StepLinkedIn, StepTask:
		return true
	}
	return false
}

// Step is one timed touch-point of a sequence.
type Step struct {
	ID              string   `json:"id" db:"id"`
	SequenceID      string   `json:"sequence_id" db:"sequence_id"`
	Order           int      `json:"order" db:"step_order"`
	Type            StepType `json:"type" db:"step_type"`
	DelayDays       int      `json:"delay_days" db:"delay_days"`
	TemplateID      string   `json:"template_id,omitempty" db:"template_id"`
	SubjectOverride string   `json:"subject_override,omitempty" db:"subject_override"`
	Description     string   `json:"description,omitempty" db:"description"`
}

// Validate checks the type-specific payload and the delay.
func (s Step) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("unknown step type %q", s.Type)
	}
	if s.Order < 1 {
		return fmt.Errorf("step order must be >= 1, got %d", s.Order)
	}
	if s.DelayDays < 0 {
		return fmt.Errorf("step %d: delay_days must not be negative", s.Order)
	}
	if s.Type == StepEmail && s.TemplateID == "" {
		return fmt.Errorf("step %d: email steps need a template_id", s.Order)
	}
	return nil
}

// Sequence is an ordered list of steps contacts progress through.
type Sequence struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Description    string         `json:"description" db:"description"`
	TargetIndustry string         `json:"target_industry" db:"target_industry"`
	TargetPersona  string         `json:"target_persona" db:"target_persona"`
	Status         SequenceStatus `json:"status" db:"status"`
	Steps          []Step         `json:"steps"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	// Stats (read-only, populated by list queries)
	TotalEnrolled  int `json:"total_enrolled"`
	ActiveEnrolled int `json:"active_enrolled"`
}

// ValidateSteps checks every step and that orders are strictly increasing.
func ValidateSteps(steps []Step) error {
	prev := 0
	for _, st := range steps {
		if err := st.Validate(); err != nil {
			return err
		}
		if st.Order <= prev {
			return fmt.Errorf("step orders must be strictly increasing (%d after %d)", st.Order, prev)
		}
		prev = st.Order
	}
	return nil
}
