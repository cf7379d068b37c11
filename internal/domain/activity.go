package domain

import "time"

// ActivityType enumerates audit trail entries.
type ActivityType string

const (
	ActivityEnrolled         ActivityType = "enrolled"
	ActivityEmailSent        ActivityType = "email_sent"
	ActivityCallMade         ActivityType = "call_made"
	ActivityCallAnswered     ActivityType = "call_answered"
	ActivityCallNoAnswer     ActivityType = "call_no_answer"
	ActivityLinkedInSent     ActivityType = "linkedin_sent"
	ActivityTaskCompleted    ActivityType = "task_completed"
	ActivityStepSkipped      ActivityType = "step_skipped"
	ActivityEmailReplied     ActivityType = "email_replied"
	ActivityEmailBounced     ActivityType = "email_bounced"
	ActivityUnsubscribed     ActivityType = "unsubscribed"
	ActivityPaused           ActivityType = "paused"
	ActivityResumed          ActivityType = "resumed"
	ActivityUnenrolled       ActivityType = "unenrolled"
	ActivitySequenceArchived ActivityType = "sequence_archived"
	ActivityScoreChanged     ActivityType = "score_changed"
)

// ExecutedActivity returns the activity recorded when a step of type t is
// executed.
func ExecutedActivity(t StepType) ActivityType {
	switch t {
	case StepEmail:
		return ActivityEmailSent
	case StepCall:
		return ActivityCallMade
	case StepLinkedIn:
		return ActivityLinkedInSent
	default:
		return ActivityTaskCompleted
	}
}

// Activity is an immutable audit record.
type Activity struct {
	ID           string       `json:"id" db:"id"`
	EnrollmentID string       `json:"enrollment_id,omitempty" db:"enrollment_id"`
	ContactID    string       `json:"contact_id" db:"contact_id"`
	SequenceID   string       `json:"sequence_id,omitempty" db:"sequence_id"`
	StepIndex    int          `json:"step_index" db:"step_index"`
	Type         ActivityType `json:"type" db:"activity_type"`
	Note         string       `json:"note,omitempty" db:"note"`
	MessageID    string       `json:"message_id,omitempty" db:"message_id"`
	OccurredAt   time.Time    `json:"occurred_at" db:"occurred_at"`
}
