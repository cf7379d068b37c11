package enrollment

import (
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/schedule"
)

// State is a classified enrollment. The concrete types are Active, Paused
// and Terminal; the interface is closed to this package.
type State interface {
	Enrollment() domain.Enrollment
	sealed()
}

// Outcome is the result of one transition: the new row and the activity
// describing it. The activity has no id yet.
type Outcome struct {
	Next     domain.Enrollment
	Activity domain.Activity
}

// Classify wraps e in the state type matching its status.
func Classify(e domain.Enrollment, steps []domain.Step) State {
	switch e.Status {
	case domain.EnrollmentActive:
		return Active{live{e: e, steps: steps}}
	case domain.EnrollmentPaused:
		return Paused{live{e: e, steps: steps}}
	default:
		return Terminal{e: e}
	}
}

// live carries the transitions shared by Active and Paused.
type live struct {
	e     domain.Enrollment
	steps []domain.Step
}

func (l live) Enrollment() domain.Enrollment { return l.e }

func (l live) outcome(next domain.Enrollment, at time.Time, t domain.ActivityType, stepIndex int) Outcome {
	next.UpdatedAt = at
	next.Version = l.e.Version + 1
	return Outcome{
		Next: next,
		Activity: domain.Activity{
			EnrollmentID: l.e.ID,
			ContactID:    l.e.ContactID,
			SequenceID:   l.e.SequenceID,
			StepIndex:    stepIndex,
			Type:         t,
			OccurredAt:   at,
		},
	}
}

// end moves to a terminal status, clearing every schedule field.
func (l live) end(status domain.EnrollmentStatus, at time.Time, t domain.ActivityType) Outcome {
	next := l.e
	next.Status = status
	next.NextDueAt = nil
	next.PausedAt = nil
	next.FrozenDueAt = nil
	next.CompletedAt = timePtr(at)
	return l.outcome(next, at, t, l.e.CurrentStep)
}

// MarkReplied ends the enrollment because the contact answered.
func (l live) MarkReplied(at time.Time) Outcome {
	return l.end(domain.EnrollmentReplied, at, domain.ActivityEmailReplied)
}

// Bounce ends the enrollment because mail to the contact bounced.
func (l live) Bounce(at time.Time) Outcome {
	return l.end(domain.EnrollmentBounced, at, domain.ActivityEmailBounced)
}

// Unsubscribe ends the enrollment because the contact opted out.
func (l live) Unsubscribe(at time.Time) Outcome {
	return l.end(domain.EnrollmentUnsubscribed, at, domain.ActivityUnsubscribed)
}

// Unenroll completes the enrollment early at the user's request.
func (l live) Unenroll(at time.Time) Outcome {
	return l.end(domain.EnrollmentCompleted, at, domain.ActivityUnenrolled)
}

// CloseForArchive completes the enrollment because its sequence was archived.
func (l live) CloseForArchive(at time.Time) Outcome {
	return l.end(domain.EnrollmentCompleted, at, domain.ActivitySequenceArchived)
}

// Active is an enrollment waiting on its current step.
type Active struct{ live }

func (Active) sealed() {}

// CurrentStep returns the step waiting to be resolved.
func (a Active) CurrentStep() (domain.Step, bool) {
	if a.e.CurrentStep < 0 || a.e.CurrentStep >= len(a.steps) {
		return domain.Step{}, false
	}
	return a.steps[a.e.CurrentStep], true
}

// Advance resolves the current step and schedules the next one, completing
// the enrollment after the last step. An empty activity type is derived
// from the step type.
func (a Active) Advance(at time.Time, t domain.ActivityType) (Outcome, error) {
	step, ok := a.CurrentStep()
	if !ok {
		return Outcome{}, ErrNoRemainingSteps
	}
	if t == "" {
		t = domain.ExecutedActivity(step.Type)
	}
	return a.move(at, t), nil
}

// Skip resolves the current step without executing it.
func (a Active) Skip(at time.Time) (Outcome, error) {
	if _, ok := a.CurrentStep(); !ok {
		return Outcome{}, ErrNoRemainingSteps
	}
	return a.move(at, domain.ActivityStepSkipped), nil
}

func (a Active) move(at time.Time, t domain.ActivityType) Outcome {
	resolved := a.e.CurrentStep
	next := a.e
	next.CurrentStep = resolved + 1
	next.NextDueAt = schedule.NextDuePtr(next.CurrentStep, a.steps, at)
	if next.NextDueAt == nil {
		next.Status = domain.EnrollmentCompleted
		next.CompletedAt = timePtr(at)
	}
	return a.outcome(next, at, t, resolved)
}

// Pause freezes the schedule. The due date is kept in FrozenDueAt.
func (a Active) Pause(at time.Time) Outcome {
	next := a.e
	next.Status = domain.EnrollmentPaused
	next.FrozenDueAt = copyTime(a.e.NextDueAt)
	next.PausedAt = timePtr(at)
	next.NextDueAt = nil
	return a.outcome(next, at, domain.ActivityPaused, a.e.CurrentStep)
}

// Paused is an enrollment whose schedule is frozen.
type Paused struct{ live }

func (Paused) sealed() {}

// Resume reactivates the enrollment. A due date still ahead of at, or one
// already reached when the pause began, is restored as is. A due date that
// fell inside the pause window is pushed out by the delay that remained
// when the pause began.
func (p Paused) Resume(at time.Time) Outcome {
	next := p.e
	next.Status = domain.EnrollmentActive
	next.NextDueAt = resumeDue(p.e, p.steps, at)
	next.PausedAt = nil
	next.FrozenDueAt = nil
	return p.outcome(next, at, domain.ActivityResumed, p.e.CurrentStep)
}

func resumeDue(e domain.Enrollment, steps []domain.Step, at time.Time) *time.Time {
	frozen := e.FrozenDueAt
	if frozen == nil {
		// Paused without a frozen date: schedule the current step afresh.
		return schedule.NextDuePtr(e.CurrentStep, steps, at)
	}
	if !frozen.Before(at) {
		return copyTime(frozen)
	}
	if e.PausedAt == nil || !frozen.After(*e.PausedAt) {
		return copyTime(frozen)
	}
	due := at.Add(frozen.Sub(*e.PausedAt))
	return &due
}

// Terminal is a finished enrollment. No transition leaves it; it can only
// be removed.
type Terminal struct{ e domain.Enrollment }

func (Terminal) sealed() {}

func (t Terminal) Enrollment() domain.Enrollment { return t.e }

func timePtr(t time.Time) *time.Time { return &t }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
