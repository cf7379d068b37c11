package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/events"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/schedule"
)

// Resolution is how the current step of an enrollment was resolved.
type Resolution string

const (
	ResolveAdvance Resolution = "advance"
	ResolveSkip    Resolution = "skip"
	ResolveReplied Resolution = "mark_replied"
)

// CallOutcome is the result of a call step.
type CallOutcome string

const (
	CallAnswered CallOutcome = "answered"
	CallNoAnswer CallOutcome = "no_answer"
)

// Service implements enrollment business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo      Repository
	contacts  ContactReader
	sequences SequenceReader
	locks     distlock.Factory
	pub       events.Publisher
	prefix    string
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLocks guards every single-enrollment transition with a non-blocking
// per-enrollment lock. A held lock fails the call with ErrBusy.
func WithLocks(f distlock.Factory) Option {
	return func(s *Service) { s.locks = f }
}

// WithPublisher publishes every committed activity on
// "<prefix>.activity.<type>".
func WithPublisher(p events.Publisher, prefix string) Option {
	return func(s *Service) {
		s.pub = p
		s.prefix = prefix
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates an enrollment service.
func NewService(repo Repository, contacts ContactReader, sequences SequenceReader, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		contacts:  contacts,
		sequences: sequences,
		pub:       events.NoopPublisher{},
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnrollInput is the request to put one contact into one sequence.
type EnrollInput struct {
	ContactID  string
	SequenceID string
	// StartImmediately makes the first step due at the enrollment instant
	// instead of after its delay.
	StartImmediately bool
}

// Enroll creates an active enrollment at step 0.
func (s *Service) Enroll(ctx context.Context, in EnrollInput, at time.Time) (*domain.Enrollment, error) {
	seq, err := s.sequences.Get(ctx, in.SequenceID)
	if err != nil {
		return nil, err
	}
	return s.enroll(ctx, seq, in.ContactID, in.StartImmediately, at)
}

func (s *Service) enroll(ctx context.Context, seq *domain.Sequence, contactID string, startNow bool, at time.Time) (*domain.Enrollment, error) {
	c, err := s.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if seq.Status != domain.SequenceActive {
		return nil, ErrSequenceNotActive
	}
	if len(seq.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if c.IsUnsubscribed {
		return nil, ErrContactUnsubscribed
	}

	existing, err := s.repo.FindByPair(ctx, c.ID, seq.ID)
	switch {
	case err == nil && existing.IsTerminal():
		return nil, ErrPriorEnrollment
	case err == nil:
		return nil, ErrAlreadyEnrolled
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("find enrollment: %w", err)
	}

	due, _ := schedule.ComputeNextDue(0, seq.Steps, at)
	if startNow {
		due = at
	}
	e := &domain.Enrollment{
		ID:          s.newID(),
		ContactID:   c.ID,
		SequenceID:  seq.ID,
		CurrentStep: 0,
		Status:      domain.EnrollmentActive,
		EnrolledAt:  at,
		NextDueAt:   &due,
		Version:     1,
		UpdatedAt:   at,
	}
	act := domain.Activity{
		ID:           s.newID(),
		EnrollmentID: e.ID,
		ContactID:    c.ID,
		SequenceID:   seq.ID,
		Type:         domain.ActivityEnrolled,
		OccurredAt:   at,
	}
	if err := s.repo.Create(ctx, e, act); err != nil {
		return nil, err
	}
	logger.Debug("contact enrolled", "enrollment_id", e.ID, "sequence_id", seq.ID, "contact_id", c.ID)
	s.Notify(ctx, Change{Transitions: []Transition{{Enrollment: *e, Activity: act}}})
	return e, nil
}

// BulkItem is the per-contact result of BulkEnroll.
type BulkItem struct {
	ContactID  string
	Enrollment *domain.Enrollment
	Err        error
}

// BulkResult keeps the items in input order.
type BulkResult struct {
	Items    []BulkItem
	Enrolled int
	Skipped  int // duplicates
	Failed   int
}

// BulkEnroll enrolls each contact independently. Only an unknown sequence
// fails the whole call.
func (s *Service) BulkEnroll(ctx context.Context, sequenceID string, contactIDs []string, at time.Time) (*BulkResult, error) {
	seq, err := s.sequences.Get(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{Items: make([]BulkItem, 0, len(contactIDs))}
	seen := make(map[string]bool, len(contactIDs))
	for _, id := range contactIDs {
		item := BulkItem{ContactID: id}
		if seen[id] {
			item.Err = ErrDuplicateInBatch
		} else {
			seen[id] = true
			item.Enrollment, item.Err = s.enroll(ctx, seq, id, false, at)
		}
		switch {
		case item.Err == nil:
			res.Enrolled++
		case apperr.KindOf(item.Err) == apperr.KindDuplicateEnrollment:
			res.Skipped++
		default:
			res.Failed++
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// ResolveOptions refines ResolveStep.
type ResolveOptions struct {
	// ExpectedVersion fails the call with ErrStaleVersion unless the
	// enrollment is still at this version.
	ExpectedVersion *int64
	// StepType, when set, requires the current step to be of this type.
	StepType     domain.StepType
	ActivityType domain.ActivityType
	Note         string
	MessageID    string
}

// ResolveStep resolves the current step of an enrollment.
func (s *Service) ResolveStep(ctx context.Context, id string, r Resolution, at time.Time, opts ResolveOptions) (*domain.Enrollment, error) {
	switch r {
	case ResolveAdvance, ResolveSkip, ResolveReplied:
	default:
		return nil, apperr.Validationf("unknown resolution %q", r)
	}
	return s.mutate(ctx, id, opts.ExpectedVersion, func(st State) (Outcome, *domain.ContactTouch, error) {
		var (
			out   Outcome
			touch *domain.ContactTouch
			err   error
		)
		e := st.Enrollment()
		if r == ResolveReplied {
			l, err := asLive(st, "mark replied")
			if err != nil {
				return Outcome{}, nil, err
			}
			out = l.MarkReplied(at)
			touch = &domain.ContactTouch{ContactID: e.ContactID, LastRepliedAt: &at, SetStatus: domain.ContactEngaged, At: at}
		} else {
			a, ok := st.(Active)
			if !ok {
				return Outcome{}, nil, invalidTransition(string(r), e.Status)
			}
			step, ok := a.CurrentStep()
			if !ok {
				return Outcome{}, nil, ErrNoRemainingSteps
			}
			if opts.StepType != "" && step.Type != opts.StepType {
				return Outcome{}, nil, wrongStepType(opts.StepType, step.Type)
			}
			if r == ResolveSkip {
				out, err = a.Skip(at)
			} else {
				out, err = a.Advance(at, opts.ActivityType)
				touch = executionTouch(e.ContactID, step.Type, at)
			}
			if err != nil {
				return Outcome{}, nil, err
			}
		}
		out.Activity.Note = opts.Note
		out.Activity.MessageID = opts.MessageID
		return out, touch, nil
	})
}

// executionTouch is the contact update for an executed step.
func executionTouch(contactID string, t domain.StepType, at time.Time) *domain.ContactTouch {
	switch t {
	case domain.StepEmail:
		return &domain.ContactTouch{
			ContactID:       contactID,
			IncEmailsSent:   true,
			LastContactedAt: &at,
			PromoteNew:      domain.ContactContacted,
			At:              at,
		}
	case domain.StepCall, domain.StepLinkedIn:
		return &domain.ContactTouch{ContactID: contactID, LastContactedAt: &at, At: at}
	}
	return nil
}

// ExecuteEmail records that the current email step was sent.
func (s *Service) ExecuteEmail(ctx context.Context, id, messageID string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.ResolveStep(ctx, id, ResolveAdvance, at, ResolveOptions{
		ExpectedVersion: expected,
		StepType:        domain.StepEmail,
		MessageID:       messageID,
	})
}

// LogCall records the outcome of the current call step.
func (s *Service) LogCall(ctx context.Context, id string, outcome CallOutcome, notes string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	var t domain.ActivityType
	switch outcome {
	case CallAnswered:
		t = domain.ActivityCallAnswered
	case CallNoAnswer:
		t = domain.ActivityCallNoAnswer
	default:
		return nil, apperr.Validationf("call outcome must be %q or %q, got %q", CallAnswered, CallNoAnswer, outcome)
	}
	return s.ResolveStep(ctx, id, ResolveAdvance, at, ResolveOptions{
		ExpectedVersion: expected,
		StepType:        domain.StepCall,
		ActivityType:    t,
		Note:            notes,
	})
}

// Skip resolves the current step without executing it.
func (s *Service) Skip(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.ResolveStep(ctx, id, ResolveSkip, at, ResolveOptions{ExpectedVersion: expected})
}

// MarkReplied ends the enrollment because the contact replied.
func (s *Service) MarkReplied(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.ResolveStep(ctx, id, ResolveReplied, at, ResolveOptions{ExpectedVersion: expected})
}

// Pause freezes an active enrollment.
func (s *Service) Pause(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.mutate(ctx, id, expected, func(st State) (Outcome, *domain.ContactTouch, error) {
		a, ok := st.(Active)
		if !ok {
			return Outcome{}, nil, invalidTransition("pause", st.Enrollment().Status)
		}
		return a.Pause(at), nil, nil
	})
}

// Resume reactivates a paused enrollment.
func (s *Service) Resume(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.mutate(ctx, id, expected, func(st State) (Outcome, *domain.ContactTouch, error) {
		p, ok := st.(Paused)
		if !ok {
			return Outcome{}, nil, invalidTransition("resume", st.Enrollment().Status)
		}
		return p.Resume(at), nil, nil
	})
}

// MarkBounced ends the enrollment because mail to the contact bounced.
func (s *Service) MarkBounced(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.mutate(ctx, id, expected, func(st State) (Outcome, *domain.ContactTouch, error) {
		l, err := asLive(st, "bounce")
		if err != nil {
			return Outcome{}, nil, err
		}
		touch := &domain.ContactTouch{ContactID: st.Enrollment().ContactID, SetStatus: domain.ContactBounced, At: at}
		return l.Bounce(at), touch, nil
	})
}

// Unenroll completes a live enrollment early.
func (s *Service) Unenroll(ctx context.Context, id string, at time.Time, expected *int64) (*domain.Enrollment, error) {
	return s.mutate(ctx, id, expected, func(st State) (Outcome, *domain.ContactTouch, error) {
		l, err := asLive(st, "unenroll")
		if err != nil {
			return Outcome{}, nil, err
		}
		return l.Unenroll(at), nil, nil
	})
}

// Remove deletes a terminal enrollment so the pair can be enrolled again.
func (s *Service) Remove(ctx context.Context, id string) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, ok := Classify(*e, nil).(Terminal); !ok {
		return invalidTransition("remove", e.Status)
	}
	return s.repo.Delete(ctx, id)
}

// Unsubscribe opts a contact out: the contact is flagged and every live
// enrollment of it ends as unsubscribed, all in one commit.
func (s *Service) Unsubscribe(ctx context.Context, contactID string, at time.Time) ([]domain.Enrollment, error) {
	c, err := s.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	live, err := s.repo.ListLiveByContact(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list live enrollments: %w", err)
	}
	if c.IsUnsubscribed && len(live) == 0 {
		return nil, nil
	}

	change := Change{Touch: &domain.ContactTouch{
		ContactID:   c.ID,
		SetStatus:   domain.ContactUnsubscribed,
		Unsubscribe: true,
		At:          at,
	}}
	ended := make([]domain.Enrollment, 0, len(live))
	for _, e := range live {
		l, err := asLive(Classify(e, nil), "unsubscribe")
		if err != nil {
			return nil, err
		}
		out := l.Unsubscribe(at)
		out.Activity.ID = s.newID()
		change.Transitions = append(change.Transitions, Transition{
			Enrollment:      out.Next,
			ExpectedVersion: e.Version,
			Activity:        out.Activity,
		})
		ended = append(ended, out.Next)
	}
	if len(live) == 0 {
		change.Activities = append(change.Activities, domain.Activity{
			ID:         s.newID(),
			ContactID:  c.ID,
			Type:       domain.ActivityUnsubscribed,
			OccurredAt: at,
		})
	}
	if err := s.repo.Apply(ctx, change); err != nil {
		return nil, err
	}
	s.Notify(ctx, change)
	return ended, nil
}

// ArchiveChange builds the change that completes the given live enrollments
// of a sequence being archived. The sequence repository calls it while it
// holds the sequence row, and the caller publishes the result with Notify.
func (s *Service) ArchiveChange(live []domain.Enrollment, at time.Time) Change {
	var change Change
	for _, e := range live {
		l, err := asLive(Classify(e, nil), "archive")
		if err != nil {
			continue
		}
		out := l.CloseForArchive(at)
		out.Activity.ID = s.newID()
		change.Transitions = append(change.Transitions, Transition{
			Enrollment:      out.Next,
			ExpectedVersion: e.Version,
			Activity:        out.Activity,
		})
	}
	return change
}

// Get returns one enrollment.
func (s *Service) Get(ctx context.Context, id string) (*domain.Enrollment, error) {
	return s.repo.Get(ctx, id)
}

// ListBySequence returns the enrollments of a sequence. An empty status
// returns all of them.
func (s *Service) ListBySequence(ctx context.Context, sequenceID string, status domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validationf("unknown enrollment status %q", status)
	}
	if _, err := s.sequences.Get(ctx, sequenceID); err != nil {
		return nil, err
	}
	return s.repo.ListBySequence(ctx, sequenceID, status)
}

// Activities returns the audit trail of an enrollment.
func (s *Service) Activities(ctx context.Context, id string) ([]domain.Activity, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Activities(ctx, id)
}

// Notify publishes the activities of a committed change. Failures are
// logged and dropped.
func (s *Service) Notify(ctx context.Context, c Change) {
	for _, t := range c.Transitions {
		s.emit(ctx, events.ActivityEvent{
			Activity:         t.Activity,
			EnrollmentStatus: t.Enrollment.Status,
			CurrentStep:      t.Enrollment.CurrentStep,
			NextDueAt:        t.Enrollment.NextDueAt,
		})
	}
	for _, a := range c.Activities {
		s.emit(ctx, events.ActivityEvent{Activity: a})
	}
}

func (s *Service) emit(ctx context.Context, ev events.ActivityEvent) {
	topic := events.ActivityTopic(s.prefix, ev.Activity.Type)
	if err := s.pub.Publish(ctx, topic, ev); err != nil {
		logger.Warn("activity publish failed", "topic", topic, "activity_id", ev.Activity.ID, "err", err)
	}
}

type mutation func(st State) (Outcome, *domain.ContactTouch, error)

// mutate runs fn against the current state of one enrollment and commits
// the outcome with a version check.
func (s *Service) mutate(ctx context.Context, id string, expected *int64, fn mutation) (*domain.Enrollment, error) {
	if s.locks == nil {
		return s.commit(ctx, id, expected, fn)
	}
	var out *domain.Enrollment
	err := distlock.WithLock(ctx, s.locks.Lock(id), func() error {
		var err error
		out, err = s.commit(ctx, id, expected, fn)
		return err
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		return nil, ErrBusy
	}
	return out, err
}

func (s *Service) commit(ctx context.Context, id string, expected *int64, fn mutation) (*domain.Enrollment, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expected != nil && *expected != e.Version {
		return nil, ErrStaleVersion
	}
	seq, err := s.sequences.Get(ctx, e.SequenceID)
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", e.SequenceID, err)
	}

	out, touch, err := fn(Classify(*e, seq.Steps))
	if err != nil {
		return nil, err
	}
	out.Activity.ID = s.newID()
	change := Change{
		Transitions: []Transition{{Enrollment: out.Next, ExpectedVersion: e.Version, Activity: out.Activity}},
		Touch:       touch,
	}
	if err := s.repo.Apply(ctx, change); err != nil {
		return nil, err
	}
	logger.Debug("enrollment transition",
		"enrollment_id", id, "activity", out.Activity.Type,
		"from_status", e.Status, "to_status", out.Next.Status, "step", out.Next.CurrentStep)
	s.Notify(ctx, change)
	next := out.Next
	return &next, nil
}

// liveState is implemented by Active and Paused.
type liveState interface {
	State
	MarkReplied(at time.Time) Outcome
	Bounce(at time.Time) Outcome
	Unsubscribe(at time.Time) Outcome
	Unenroll(at time.Time) Outcome
	CloseForArchive(at time.Time) Outcome
}

func asLive(st State, op string) (liveState, error) {
	switch v := st.(type) {
	case Active:
		return v, nil
	case Paused:
		return v, nil
	}
	return nil, invalidTransition(op, st.Enrollment().Status)
}
