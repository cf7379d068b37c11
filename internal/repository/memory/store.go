// Package memory implements every repository interface in process memory.
// It backs the "memory" database driver and the service and handler tests.
package memory

import (
	"sort"
	"sync"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// Store holds all rows behind one lock, so a Change is applied atomically
// the same way a database transaction would.
type Store struct {
	mu          sync.RWMutex
	contacts    map[string]*domain.Contact
	sequences   map[string]*domain.Sequence
	templates   map[string]*domain.EmailTemplate
	enrollments map[string]*domain.Enrollment
	activities  []domain.Activity
}

// New returns an empty store.
func New() *Store {
	return &Store{
		contacts:    make(map[string]*domain.Contact),
		sequences:   make(map[string]*domain.Sequence),
		templates:   make(map[string]*domain.EmailTemplate),
		enrollments: make(map[string]*domain.Enrollment),
	}
}

func (s *Store) Contacts() *ContactRepo       { return &ContactRepo{s: s} }
func (s *Store) Sequences() *SequenceRepo     { return &SequenceRepo{s: s} }
func (s *Store) Templates() *TemplateRepo     { return &TemplateRepo{s: s} }
func (s *Store) Enrollments() *EnrollmentRepo { return &EnrollmentRepo{s: s} }
func (s *Store) Actions() *ActionSource       { return &ActionSource{s: s} }
func (s *Store) Dashboard() *DashboardRepo    { return &DashboardRepo{s: s} }

// ContactActivities returns the activities recorded for a contact in
// insertion order.
func (s *Store) ContactActivities(contactID string) []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Activity
	for _, a := range s.activities {
		if a.ContactID == contactID {
			out = append(out, a)
		}
	}
	return out
}

// applyLocked validates every transition of c before writing any of them.
// Callers hold the write lock.
func (s *Store) applyLocked(c enrollment.Change) error {
	for _, t := range c.Transitions {
		cur, ok := s.enrollments[t.Enrollment.ID]
		if !ok {
			return enrollment.ErrNotFound
		}
		if cur.Version != t.ExpectedVersion {
			return enrollment.ErrStaleVersion
		}
	}
	var contact *domain.Contact
	if c.Touch != nil {
		ct, ok := s.contacts[c.Touch.ContactID]
		if !ok {
			return errContactMissing
		}
		contact = ct
	}

	for _, t := range c.Transitions {
		e := t.Enrollment
		e.Version = t.ExpectedVersion + 1
		s.enrollments[e.ID] = &e
		s.activities = append(s.activities, t.Activity)
	}
	s.activities = append(s.activities, c.Activities...)
	if contact != nil {
		updated := *contact
		c.Touch.ApplyTo(&updated)
		s.contacts[updated.ID] = &updated
	}
	return nil
}

// enrollmentsLocked returns copies of the matching enrollments, oldest
// first. Callers hold the lock.
func (s *Store) enrollmentsLocked(keep func(*domain.Enrollment) bool) []domain.Enrollment {
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].EnrolledAt.Before(out[j].EnrolledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copySequence(seq *domain.Sequence) *domain.Sequence {
	cp := *seq
	cp.Steps = append([]domain.Step(nil), seq.Steps...)
	sort.Slice(cp.Steps, func(i, j int) bool { return cp.Steps[i].Order < cp.Steps[j].Order })
	return &cp
}
