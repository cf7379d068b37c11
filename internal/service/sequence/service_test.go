package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/render"
	"github.com/ignite/outreach-engine/internal/repository/memory"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
	"github.com/ignite/outreach-engine/internal/service/template"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type env struct {
	store       *memory.Store
	svc         *sequence.Service
	enrollments *enrollment.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Templates().Create(context.Background(), &domain.EmailTemplate{ID: "tpl-1", Name: "Intro", Subject: "Hi", IsActive: true}))
	enr := enrollment.NewService(store.Enrollments(), store.Contacts(), store.Sequences())
	tpl := template.NewService(store.Templates(), nil, render.NewTemplateService())
	return &env{
		store:       store,
		svc:         sequence.NewService(store.Sequences(), enr, tpl),
		enrollments: enr,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.SequenceStatus
		want     bool
	}{
		{domain.SequenceDraft, domain.SequenceActive, true},
		{domain.SequenceDraft, domain.SequencePaused, false},
		{domain.SequenceActive, domain.SequencePaused, true},
		{domain.SequencePaused, domain.SequenceActive, true},
		{domain.SequenceActive, domain.SequenceArchived, true},
		{domain.SequenceArchived, domain.SequenceActive, false},
		{domain.SequenceArchived, domain.SequenceDraft, false},
		{domain.SequenceActive, domain.SequenceDraft, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sequence.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCreateAndAddSteps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Create(ctx, sequence.CreateInput{Name: "  "}, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = e.svc.Create(ctx, sequence.CreateInput{
		Name:  "Bad template",
		Steps: []domain.Step{{Type: domain.StepEmail, TemplateID: "nope"}},
	}, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	seq, err := e.svc.Create(ctx, sequence.CreateInput{
		Name:  "Recyclers",
		Steps: []domain.Step{{Type: domain.StepEmail, TemplateID: "tpl-1"}},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceDraft, seq.Status)
	assert.Equal(t, 1, seq.Steps[0].Order)

	step, err := e.svc.AddStep(ctx, seq.ID, domain.Step{Type: domain.StepCall, DelayDays: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, step.Order)

	_, err = e.svc.AddStep(ctx, seq.ID, domain.Step{Type: domain.StepTask, Order: 2})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "order must grow")

	_, err = e.svc.AddStep(ctx, seq.ID, domain.Step{Type: domain.StepCall, DelayDays: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := e.svc.Get(ctx, seq.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)

	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceActive, now)
	require.NoError(t, err)
	_, err = e.svc.AddStep(ctx, seq.ID, domain.Step{Type: domain.StepTask})
	assert.ErrorIs(t, err, sequence.ErrNotDraft)
}

func TestActivateNeedsSteps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seq, err := e.svc.Create(ctx, sequence.CreateInput{Name: "Empty"}, now)
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceActive, now)
	assert.ErrorIs(t, err, sequence.ErrNoSteps)

	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequencePaused, now)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = e.svc.UpdateStatus(ctx, seq.ID, "retired", now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	same, err := e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceDraft, now)
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceDraft, same.Status)
}

func TestArchiveCompletesLiveEnrollments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, id := range []string{"c-1", "c-2", "c-3"} {
		require.NoError(t, e.store.Contacts().Create(ctx, &domain.Contact{ID: id, Email: id + "@x.example", Status: domain.ContactNew}))
	}
	seq, err := e.svc.Create(ctx, sequence.CreateInput{
		Name:  "Recyclers",
		Steps: []domain.Step{{Type: domain.StepEmail, TemplateID: "tpl-1"}, {Type: domain.StepCall, DelayDays: 2}},
	}, now)
	require.NoError(t, err)
	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceActive, now)
	require.NoError(t, err)

	enroll := func(contactID string) *domain.Enrollment {
		en, err := e.enrollments.Enroll(ctx, enrollment.EnrollInput{ContactID: contactID, SequenceID: seq.ID}, now)
		require.NoError(t, err)
		return en
	}
	active := enroll("c-1")
	paused := enroll("c-2")
	replied := enroll("c-3")
	_, err = e.enrollments.Pause(ctx, paused.ID, now, nil)
	require.NoError(t, err)
	_, err = e.enrollments.MarkReplied(ctx, replied.ID, now, nil)
	require.NoError(t, err)

	archivedAt := now.Add(time.Hour)
	out, err := e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceArchived, archivedAt)
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceArchived, out.Status)

	for _, id := range []string{active.ID, paused.ID} {
		en, err := e.enrollments.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.EnrollmentCompleted, en.Status)
		assert.Nil(t, en.NextDueAt)
		acts, err := e.enrollments.Activities(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ActivitySequenceArchived, acts[len(acts)-1].Type)
	}
	r, err := e.enrollments.Get(ctx, replied.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentReplied, r.Status, "terminal enrollments are left alone")

	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceActive, now)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "archived is final")
}

// enrollBeforeArchive enrolls a contact just before the archive commits.
type enrollBeforeArchive struct {
	sequence.Repository
	enroll func()
}

func (r enrollBeforeArchive) SetStatus(ctx context.Context, id string, from, to domain.SequenceStatus, at time.Time, closeLive sequence.CloseLiveFunc) (enrollment.Change, error) {
	if to == domain.SequenceArchived {
		r.enroll()
	}
	return r.Repository.SetStatus(ctx, id, from, to, at, closeLive)
}

func TestArchiveClosesEnrollmentCreatedDuringArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Contacts().Create(ctx, &domain.Contact{ID: "c-late", Email: "late@x.example", Status: domain.ContactNew}))
	seq, err := e.svc.Create(ctx, sequence.CreateInput{
		Name:  "Recyclers",
		Steps: []domain.Step{{Type: domain.StepEmail, TemplateID: "tpl-1"}},
	}, now)
	require.NoError(t, err)
	_, err = e.svc.UpdateStatus(ctx, seq.ID, domain.SequenceActive, now)
	require.NoError(t, err)

	var late *domain.Enrollment
	repo := enrollBeforeArchive{Repository: e.store.Sequences(), enroll: func() {
		var err error
		late, err = e.enrollments.Enroll(ctx, enrollment.EnrollInput{ContactID: "c-late", SequenceID: seq.ID}, now)
		require.NoError(t, err)
	}}
	svc := sequence.NewService(repo, e.enrollments, nil)

	_, err = svc.UpdateStatus(ctx, seq.ID, domain.SequenceArchived, now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, late)

	got, err := e.enrollments.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentCompleted, got.Status, "no live enrollment survives on an archived sequence")
	assert.Nil(t, got.NextDueAt)
}

func TestList(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.List(context.Background(), "bogus")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
