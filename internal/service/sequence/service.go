package sequence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// TemplateChecker reports whether a template exists.
type TemplateChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service implements sequence catalog logic.
type Service struct {
	repo        Repository
	enrollments *enrollment.Service
	templates   TemplateChecker
}

// NewService creates a sequence service. enrollments builds the archive
// change; templates may be nil to skip template checks.
func NewService(repo Repository, enrollments *enrollment.Service, templates TemplateChecker) *Service {
	return &Service{repo: repo, enrollments: enrollments, templates: templates}
}

// CreateInput holds the fields of a new sequence.
type CreateInput struct {
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	TargetIndustry string        `json:"target_industry"`
	TargetPersona  string        `json:"target_persona"`
	Steps          []domain.Step `json:"steps"`
}

// Create persists a new draft sequence.
func (s *Service) Create(ctx context.Context, in CreateInput, at time.Time) (*domain.Sequence, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	seq := &domain.Sequence{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    in.Description,
		TargetIndustry: in.TargetIndustry,
		TargetPersona:  in.TargetPersona,
		Status:         domain.SequenceDraft,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	for i, st := range in.Steps {
		if st.Order == 0 {
			st.Order = i + 1
		}
		st.ID = uuid.NewString()
		st.SequenceID = seq.ID
		seq.Steps = append(seq.Steps, st)
	}
	if err := domain.ValidateSteps(seq.Steps); err != nil {
		return nil, apperr.Validationf("%v", err)
	}
	for _, st := range seq.Steps {
		if err := s.checkTemplate(ctx, st); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// Get returns a sequence with its steps.
func (s *Service) Get(ctx context.Context, id string) (*domain.Sequence, error) {
	return s.repo.Get(ctx, id)
}

// List returns sequences, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domain.SequenceStatus) ([]domain.Sequence, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validationf("unknown sequence status %q", status)
	}
	return s.repo.List(ctx, status)
}

// AddStep appends a step to a draft sequence. A zero order places it after
// the last step.
func (s *Service) AddStep(ctx context.Context, sequenceID string, step domain.Step) (*domain.Step, error) {
	seq, err := s.repo.Get(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq.Status != domain.SequenceDraft {
		return nil, ErrNotDraft
	}
	last := 0
	if n := len(seq.Steps); n > 0 {
		last = seq.Steps[n-1].Order
	}
	if step.Order == 0 {
		step.Order = last + 1
	}
	if step.Order <= last {
		return nil, apperr.Validationf("step order %d must be greater than the last order %d", step.Order, last)
	}
	step.ID = uuid.NewString()
	step.SequenceID = seq.ID
	if err := step.Validate(); err != nil {
		return nil, apperr.Validationf("%v", err)
	}
	if err := s.checkTemplate(ctx, step); err != nil {
		return nil, err
	}
	if err := s.repo.AddStep(ctx, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *Service) checkTemplate(ctx context.Context, st domain.Step) error {
	if s.templates == nil || st.TemplateID == "" {
		return nil
	}
	ok, err := s.templates.Exists(ctx, st.TemplateID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validationf("step %d references unknown template %s", st.Order, st.TemplateID)
	}
	return nil
}

// transitions lists the legal sequence status moves.
var transitions = map[domain.SequenceStatus][]domain.SequenceStatus{
	domain.SequenceDraft:  {domain.SequenceActive, domain.SequenceArchived},
	domain.SequenceActive: {domain.SequencePaused, domain.SequenceArchived},
	domain.SequencePaused: {domain.SequenceActive, domain.SequenceArchived},
}

// CanTransition reports whether a sequence may move from one status to
// another.
func CanTransition(from, to domain.SequenceStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves a sequence to a new status. Requesting the current
// status is a no-op. Archiving completes every live enrollment.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.SequenceStatus, at time.Time) (*domain.Sequence, error) {
	if !to.Valid() {
		return nil, apperr.Validationf("unknown sequence status %q", to)
	}
	seq, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := seq.Status
	if from == to {
		return seq, nil
	}
	if !CanTransition(from, to) {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "cannot move sequence from %s to %s", from, to)
	}
	if to == domain.SequenceActive && len(seq.Steps) == 0 {
		return nil, ErrNoSteps
	}

	var closeLive CloseLiveFunc
	if to == domain.SequenceArchived {
		closeLive = func(live []domain.Enrollment) enrollment.Change {
			return s.enrollments.ArchiveChange(live, at)
		}
	}
	change, err := s.repo.SetStatus(ctx, id, from, to, at, closeLive)
	if err != nil {
		return nil, err
	}
	s.enrollments.Notify(ctx, change)
	logger.Info("sequence status changed", "sequence_id", id, "from_status", from, "to_status", to, "closed_enrollments", len(change.Transitions))

	seq.Status = to
	seq.UpdatedAt = at
	return seq, nil
}
