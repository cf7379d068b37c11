package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

// SequenceRepo implements sequence.Repository and enrollment.SequenceReader.
type SequenceRepo struct{ s *Store }

func (r *SequenceRepo) Get(_ context.Context, id string) (*domain.Sequence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seq, ok := r.s.sequences[id]
	if !ok {
		return nil, sequence.ErrNotFound
	}
	return copySequence(seq), nil
}

func (r *SequenceRepo) List(_ context.Context, status domain.SequenceStatus) ([]domain.Sequence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Sequence
	for _, seq := range r.s.sequences {
		if status != "" && seq.Status != status {
			continue
		}
		cp := copySequence(seq)
		for _, e := range r.s.enrollments {
			if e.SequenceID != seq.ID {
				continue
			}
			cp.TotalEnrolled++
			if e.Status == domain.EnrollmentActive {
				cp.ActiveEnrolled++
			}
		}
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *SequenceRepo) Create(_ context.Context, seq *domain.Sequence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sequences[seq.ID] = copySequence(seq)
	return nil
}

func (r *SequenceRepo) AddStep(_ context.Context, step *domain.Step) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq, ok := r.s.sequences[step.SequenceID]
	if !ok {
		return sequence.ErrNotFound
	}
	if seq.Status != domain.SequenceDraft {
		return sequence.ErrNotDraft
	}
	for _, st := range seq.Steps {
		if st.Order == step.Order {
			return sequence.ErrStepOrderTaken
		}
	}
	updated := copySequence(seq)
	updated.Steps = append(updated.Steps, *step)
	r.s.sequences[seq.ID] = copySequence(updated)
	return nil
}

func (r *SequenceRepo) SetStatus(_ context.Context, id string, from, to domain.SequenceStatus, at time.Time, closeLive sequence.CloseLiveFunc) (enrollment.Change, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq, ok := r.s.sequences[id]
	if !ok {
		return enrollment.Change{}, sequence.ErrNotFound
	}
	if seq.Status != from {
		return enrollment.Change{}, sequence.ErrStatusConflict
	}
	var change enrollment.Change
	if closeLive != nil {
		live := r.s.enrollmentsLocked(func(e *domain.Enrollment) bool {
			return e.SequenceID == id && !e.IsTerminal()
		})
		change = closeLive(live)
		if err := r.s.applyLocked(change); err != nil {
			return enrollment.Change{}, err
		}
	}
	updated := copySequence(seq)
	updated.Status = to
	updated.UpdatedAt = at
	r.s.sequences[id] = updated
	return change, nil
}
