package memory

import (
	"context"
	"sort"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

// EnrollmentRepo implements enrollment.Repository.
type EnrollmentRepo struct{ s *Store }

func (r *EnrollmentRepo) Get(_ context.Context, id string) (*domain.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *EnrollmentRepo) FindByPair(_ context.Context, contactID, sequenceID string) (*domain.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.enrollments {
		if e.ContactID == contactID && e.SequenceID == sequenceID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, enrollment.ErrNotFound
}

func (r *EnrollmentRepo) Create(_ context.Context, e *domain.Enrollment, act domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq, ok := r.s.sequences[e.SequenceID]
	if !ok {
		return sequence.ErrNotFound
	}
	if seq.Status != domain.SequenceActive {
		return enrollment.ErrSequenceNotActive
	}
	for _, existing := range r.s.enrollments {
		if existing.ContactID == e.ContactID && existing.SequenceID == e.SequenceID {
			return enrollment.ErrAlreadyEnrolled
		}
	}
	cp := *e
	r.s.enrollments[e.ID] = &cp
	r.s.activities = append(r.s.activities, act)
	return nil
}

func (r *EnrollmentRepo) Apply(_ context.Context, c enrollment.Change) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.applyLocked(c)
}

func (r *EnrollmentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(r.s.enrollments, id)
	// the audit trail outlives the row, detached like ON DELETE SET NULL
	for i := range r.s.activities {
		if r.s.activities[i].EnrollmentID == id {
			r.s.activities[i].EnrollmentID = ""
		}
	}
	return nil
}

func (r *EnrollmentRepo) ListBySequence(_ context.Context, sequenceID string, status domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	return r.list(func(e *domain.Enrollment) bool {
		return e.SequenceID == sequenceID && (status == "" || e.Status == status)
	}), nil
}

func (r *EnrollmentRepo) ListLiveByContact(_ context.Context, contactID string) ([]domain.Enrollment, error) {
	return r.list(func(e *domain.Enrollment) bool {
		return e.ContactID == contactID && !e.IsTerminal()
	}), nil
}

func (r *EnrollmentRepo) list(keep func(*domain.Enrollment) bool) []domain.Enrollment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.enrollmentsLocked(keep)
}

func (r *EnrollmentRepo) Activities(_ context.Context, enrollmentID string) ([]domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Activity
	for _, a := range r.s.activities {
		if a.EnrollmentID == enrollmentID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
