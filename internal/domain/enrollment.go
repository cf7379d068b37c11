package domain

import (
	"fmt"
	"time"
)

// EnrollmentStatus enumerates the lifecycle states of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive       EnrollmentStatus = "active"
	EnrollmentPaused       EnrollmentStatus = "paused"
	EnrollmentCompleted    EnrollmentStatus = "completed"
	EnrollmentReplied      EnrollmentStatus = "replied"
	EnrollmentBounced      EnrollmentStatus = "bounced"
	EnrollmentUnsubscribed EnrollmentStatus = "unsubscribed"
)

// IsTerminal reports whether no transition may leave s.
func (s EnrollmentStatus) IsTerminal() bool {
	switch s {
	case EnrollmentCompleted, EnrollmentReplied, EnrollmentBounced, EnrollmentUnsubscribed:
		return true
	}
	return false
}

// Valid reports whether s is a known enrollment status.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentActive || s == EnrollmentPaused || s.IsTerminal()
}

// Enrollment is one contact's progress through one sequence.
type Enrollment struct {
	ID          string           `json:"id" db:"id"`
	ContactID   string           `json:"contact_id" db:"contact_id"`
	SequenceID  string           `json:"sequence_id" db:"sequence_id"`
	CurrentStep int              `json:"current_step" db:"current_step"`
	Status      EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt  time.Time        `json:"enrolled_at" db:"enrolled_at"`
	NextDueAt   *time.Time       `json:"next_due_at" db:"next_due_at"`
	PausedAt    *time.Time       `json:"paused_at,omitempty" db:"paused_at"`
	FrozenDueAt *time.Time       `json:"frozen_due_at,omitempty" db:"frozen_due_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	Version     int64            `json:"version" db:"version"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the enrollment is in a final state.
func (e *Enrollment) IsTerminal() bool { return e.Status.IsTerminal() }

// CheckInvariant verifies that next_due_at is set exactly when the
// enrollment is active with steps remaining.
func (e *Enrollment) CheckInvariant(stepCount int) error {
	wantDue := e.Status == EnrollmentActive && e.CurrentStep < stepCount
	if wantDue && e.NextDueAt == nil {
		return fmt.Errorf("enrollment %s: active at step %d/%d without next_due_at", e.ID, e.CurrentStep, stepCount)
	}
	if !wantDue && e.NextDueAt != nil {
		return fmt.Errorf("enrollment %s: %s at step %d/%d with next_due_at set", e.ID, e.Status, e.CurrentStep, stepCount)
	}
	return nil
}
