package template_test

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
	"github.com/ignite/outreach-engine/internal/service/template"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newService() *template.Service {
	store := memory.New()
	return template.NewService(store.Templates(), store.Contacts(), render.NewTemplateService())
}

func TestCreateWarnsOnUnknownVariables(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	out, err := svc.Create(ctx, template.CreateInput{
		Name:     "Intro",
		Subject:  "Hi {{ firstName }}",
		BodyHTML: "<p>{{ company | capitalize }} and {{ plantCount }}</p>",
		BodyText: "{{ firstName }} / {{ plantCount }}",
	}, now)
	require.NoError(t, err)
	assert.True(t, out.Template.IsActive)
	require.Len(t, out.Warnings, 2)
	assert.Equal(t, "plantCount", out.Warnings[0].Variable)

	ok, err := svc.Exists(ctx, out.Template.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateRejectsBrokenTemplates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, template.CreateInput{Name: "x"}, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "subject required")

	_, err = svc.Create(ctx, template.CreateInput{Name: "x", Subject: "ok", BodyHTML: "{% if firstName %}Hi"}, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPreview(t *testing.T) {
	store := memory.New()
	svc := template.NewService(store.Templates(), store.Contacts(), render.NewTemplateService())
	ctx := context.Background()
	require.NoError(t, store.Contacts().Create(ctx, &domain.Contact{
		ID: "c-1", Email: "marie@pyrowave.com", FirstName: "Marie", Company: "Pyrowave", Status: domain.ContactNew,
	}))
	out, err := svc.Create(ctx, template.CreateInput{
		Name:     "Intro",
		Subject:  "Hi {{ firstName }}",
		BodyHTML: "<p>{{ company }} {{ plantCount }}</p>",
		BodyText: "Hello {{ firstName | default: 'there' }}",
	}, now)
	require.NoError(t, err)
	id := out.Template.ID

	p, err := svc.Preview(ctx, template.PreviewInput{TemplateID: id})
	require.NoError(t, err)
	assert.Equal(t, "Hi John", p.Subject)
	assert.Equal(t, "<p>Acme Corp </p>", p.BodyHTML)
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, "plantCount", p.Warnings[0].Variable)

	p, err = svc.Preview(ctx, template.PreviewInput{TemplateID: id, ContactID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Marie", p.Subject)
	assert.Equal(t, "Hello Marie", p.BodyText)

	p, err = svc.Preview(ctx, template.PreviewInput{TemplateID: id, SampleData: map[string]any{"firstName": "Lea"}})
	require.NoError(t, err)
	assert.Equal(t, "Hi Lea", p.Subject)

	_, err = svc.Preview(ctx, template.PreviewInput{TemplateID: id, ContactID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Preview(ctx, template.PreviewInput{TemplateID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Preview(ctx, template.PreviewInput{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestVariables(t *testing.T) {
	info := newService().Variables()
	assert.Equal(t, domain.TemplateVariables, info.Variables)
	assert.Contains(t, info.Usage, "{{ variableName }}")
}
