package memory

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// ActionSource implements actions.Source.
type ActionSource struct{ s *Store }

func (a *ActionSource) ListDue(_ context.Context, cutoff time.Time) ([]domain.DueEnrollment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []domain.DueEnrollment
	for _, e := range a.s.enrollments {
		if e.Status != domain.EnrollmentActive || e.NextDueAt == nil || !e.NextDueAt.Before(cutoff) {
			continue
		}
		d, ok := a.joinLocked(e)
		if !ok || d.Sequence.Status != domain.SequenceActive {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (a *ActionSource) Current(_ context.Context, enrollmentID string) (*domain.DueEnrollment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	e, ok := a.s.enrollments[enrollmentID]
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	d, ok := a.joinLocked(e)
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	return &d, nil
}

func (a *ActionSource) joinLocked(e *domain.Enrollment) (domain.DueEnrollment, bool) {
	c, ok := a.s.contacts[e.ContactID]
	if !ok {
		return domain.DueEnrollment{}, false
	}
	seq, ok := a.s.sequences[e.SequenceID]
	if !ok {
		return domain.DueEnrollment{}, false
	}
	full := copySequence(seq)
	d := domain.DueEnrollment{Enrollment: *e, Contact: *c, Sequence: *full}
	d.Sequence.Steps = nil
	if e.CurrentStep >= 0 && e.CurrentStep < len(full.Steps) {
		d.Step = full.Steps[e.CurrentStep]
		if t, ok := a.s.templates[d.Step.TemplateID]; ok {
			cp := *t
			d.Template = &cp
		}
	}
	return d, true
}
