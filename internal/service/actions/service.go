package actions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/render"
	"github.com/ignite/outreach-engine/internal/schedule"
)

// DefaultPreviewLength is the subject preview length in runes.
const DefaultPreviewLength = 100

// Source reads enrollments joined with their contact, sequence, current
// step and template.
type Source interface {
	// ListDue returns active enrollments of active sequences whose
	// next_due_at is strictly before cutoff.
	ListDue(ctx context.Context, cutoff time.Time) ([]domain.DueEnrollment, error)

	// Current returns one enrollment joined the same way, whatever its
	// status. Unknown ids yield an error of kind not_found.
	Current(ctx context.Context, enrollmentID string) (*domain.DueEnrollment, error)
}

// Service builds today-actions and composes step emails.
type Service struct {
	src        Source
	renderer   *render.TemplateService
	loc        *time.Location
	previewLen int
}

// NewService creates a materializer. Day boundaries are computed in loc.
func NewService(src Source, renderer *render.TemplateService, loc *time.Location, previewLen int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	return &Service{src: src, renderer: renderer, loc: loc, previewLen: previewLen}
}

// Location is the engine's day-boundary location.
func (s *Service) Location() *time.Location { return s.loc }

// ListToday returns the actions due on or before the calendar day of ref.
func (s *Service) ListToday(ctx context.Context, ref time.Time) (*domain.TodayActions, error) {
	start, end := schedule.DayWindow(ref, s.loc)
	due, err := s.src.ListDue(ctx, end)
	if err != nil {
		return nil, fmt.Errorf("list due enrollments: %w", err)
	}

	out := &domain.TodayActions{
		Date:    start.Format(schedule.DateLayout),
		Actions: make([]domain.TodayAction, 0, len(due)),
	}
	seen := make(map[string]bool, len(due))
	for _, d := range due {
		e := d.Enrollment
		if seen[e.ID] || e.Status != domain.EnrollmentActive || e.NextDueAt == nil || !e.NextDueAt.Before(end) {
			continue
		}
		seen[e.ID] = true

		a := s.action(d, start)
		switch a.StepType {
		case domain.StepEmail:
			out.EmailActions++
		case domain.StepCall:
			out.CallActions++
		default:
			out.OtherActions++
		}
		out.Actions = append(out.Actions, a)
	}
	out.TotalActions = len(out.Actions)

	sort.SliceStable(out.Actions, func(i, j int) bool {
		a, b := out.Actions[i], out.Actions[j]
		if ra, rb := a.ICPTier.Rank(), b.ICPTier.Rank(); ra != rb {
			return ra < rb
		}
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.EnrollmentID < b.EnrollmentID
	})
	return out, nil
}

func (s *Service) action(d domain.DueEnrollment, dayStart time.Time) domain.TodayAction {
	e, c, st := d.Enrollment, d.Contact, d.Step
	a := domain.TodayAction{
		EnrollmentID:   e.ID,
		Version:        e.Version,
		ContactID:      c.ID,
		ContactName:    c.FullName(),
		ContactEmail:   c.Email,
		ContactCompany: c.Company,
		ICPTier:        c.ICPTier,
		ICPScore:       c.ICPScore,
		SequenceID:     d.Sequence.ID,
		SequenceName:   d.Sequence.Name,
		StepIndex:      e.CurrentStep,
		StepNumber:     e.CurrentStep + 1,
		StepType:       st.Type,
		DueAt:          *e.NextDueAt,
		Overdue:        e.NextDueAt.Before(dayStart),
	}
	switch st.Type {
	case domain.StepEmail:
		a.TemplateID = st.TemplateID
		if d.Template != nil {
			a.TemplateName = d.Template.Name
		}
		a.SubjectPreview = s.subjectPreview(d)
	case domain.StepLinkedIn:
		a.TemplateID = st.TemplateID
		if d.Template != nil {
			a.TemplateName = d.Template.Name
		}
		a.Description = st.Description
	default:
		a.Description = st.Description
	}
	return a
}

// subjectPreview renders the step subject for the contact and cuts it to
// the preview length. A step override beats the template subject.
func (s *Service) subjectPreview(d domain.DueEnrollment) string {
	subject, key := subjectSource(d)
	if subject == "" {
		return ""
	}
	rendered := s.renderer.RenderLax(key, subject, d.Contact.TemplateVars())
	return render.Truncate(rendered, s.previewLen)
}

func subjectSource(d domain.DueEnrollment) (string, string) {
	if d.Step.SubjectOverride != "" {
		return d.Step.SubjectOverride, "step:" + d.Step.ID + ":subject"
	}
	if d.Template != nil {
		return d.Template.Subject, "tpl:" + d.Template.ID + ":subject"
	}
	return "", ""
}

// Compose renders the full email for the current step of an active
// enrollment.
func (s *Service) Compose(ctx context.Context, enrollmentID string) (*domain.ComposedEmail, error) {
	d, err := s.src.Current(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if d.Enrollment.Status != domain.EnrollmentActive {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "cannot compose for an enrollment that is %s", d.Enrollment.Status)
	}
	if d.Step.Type != domain.StepEmail {
		return nil, apperr.Validationf("current step is a %s step, not email", d.Step.Type)
	}
	if d.Template == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "template %s not found", d.Step.TemplateID)
	}

	vars := d.Contact.TemplateVars()
	subject, key := subjectSource(*d)
	out := &domain.ComposedEmail{
		EnrollmentID: d.Enrollment.ID,
		ContactID:    d.Contact.ID,
		ToEmail:      d.Contact.Email,
		ToName:       d.Contact.FullName(),
		SequenceID:   d.Sequence.ID,
		StepNumber:   d.Enrollment.CurrentStep + 1,
		Unsubscribed: d.Contact.IsUnsubscribed,
	}
	parts := []struct {
		dst      *string
		key, src string
	}{
		{&out.Subject, key, subject},
		{&out.BodyHTML, "tpl:" + d.Template.ID + ":html", d.Template.BodyHTML},
		{&out.BodyText, "tpl:" + d.Template.ID + ":text", d.Template.BodyText},
	}
	for _, p := range parts {
		if p.src == "" {
			continue
		}
		v, err := s.renderer.Render(p.key, p.src, vars)
		if err != nil {
			return nil, apperr.Validationf("render %s: %v", p.key, err)
		}
		*p.dst = v
	}
	return out, nil
}
