// Package template manages the email templates referenced by sequence steps.
package template

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/render"
)

var ErrNotFound = apperr.New(apperr.KindNotFound, "template not found")

// Repository defines the data access contract for templates.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.EmailTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error)
	Create(ctx context.Context, t *domain.EmailTemplate) error
}

// ContactReader loads the contact a preview renders for.
type ContactReader interface {
	Get(ctx context.Context, id string) (*domain.Contact, error)
}

// Service validates templates before storing them and renders previews.
type Service struct {
	repo     Repository
	contacts ContactReader
	renderer *render.TemplateService
}

// NewService creates a template service. contacts may be nil, in which case
// previews for a stored contact are rejected.
func NewService(repo Repository, contacts ContactReader, renderer *render.TemplateService) *Service {
	return &Service{repo: repo, contacts: contacts, renderer: renderer}
}

// CreateInput holds the fields of a new template.
type CreateInput struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
	Category string `json:"category"`
}

// Created is a stored template plus variables it uses that contacts do not
// provide.
type Created struct {
	Template *domain.EmailTemplate   `json:"template"`
	Warnings []render.VariableWarning `json:"warnings,omitempty"`
}

// Create parses every part of the template and stores it as active.
func (s *Service) Create(ctx context.Context, in CreateInput, at time.Time) (*Created, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validationf("name is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, apperr.Validationf("subject is required")
	}
	vars := map[string]interface{}{}
	for _, v := range domain.TemplateVariables {
		vars[v] = ""
	}
	var warnings []render.VariableWarning
	parts := []struct{ name, body string }{
		{"subject", in.Subject},
		{"body_html", in.BodyHTML},
		{"body_text", in.BodyText},
	}
	for _, p := range parts {
		if err := s.renderer.Parse(p.body); err != nil {
			return nil, apperr.Validationf("%s: %v", p.name, err)
		}
		warnings = append(warnings, s.renderer.ValidateVariables(p.body, vars)...)
	}

	t := &domain.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Subject:   in.Subject,
		BodyHTML:  in.BodyHTML,
		BodyText:  in.BodyText,
		Category:  in.Category,
		IsActive:  true,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return &Created{Template: t, Warnings: warnings}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	return s.repo.List(ctx, activeOnly)
}

// Exists reports whether a template with id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SampleVars is the placeholder contact used by previews without a contact
// or sample data.
var SampleVars = map[string]any{
	"firstName": "John",
	"lastName":  "Doe",
	"fullName":  "John Doe",
	"email":     "john@example.com",
	"company":   "Acme Corp",
	"jobTitle":  "Sustainability Manager",
	"industry":  "chemical_recycling",
}

// PreviewInput selects the template and the variables to render it with.
// ContactID wins over SampleData; with neither, SampleVars is used.
type PreviewInput struct {
	TemplateID string         `json:"template_id"`
	ContactID  string         `json:"contact_id,omitempty"`
	SampleData map[string]any `json:"sample_data,omitempty"`
}

// Preview is a rendered template.
type Preview struct {
	Subject  string                   `json:"subject"`
	BodyHTML string                   `json:"body_html"`
	BodyText string                   `json:"body_text"`
	Warnings []render.VariableWarning `json:"warnings,omitempty"`
}

// Preview renders a stored template. Nothing is cached or written.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (*Preview, error) {
	if strings.TrimSpace(in.TemplateID) == "" {
		return nil, apperr.Validationf("template_id is required")
	}
	t, err := s.repo.Get(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}

	vars := SampleVars
	switch {
	case in.ContactID != "":
		if s.contacts == nil {
			return nil, apperr.Validationf("contact previews are not available")
		}
		c, err := s.contacts.Get(ctx, in.ContactID)
		if err != nil {
			return nil, err
		}
		vars = c.TemplateVars()
	case len(in.SampleData) > 0:
		vars = in.SampleData
	}

	out := &Preview{}
	parts := []struct {
		name string
		body string
		dst  *string
	}{
		{"subject", t.Subject, &out.Subject},
		{"body_html", t.BodyHTML, &out.BodyHTML},
		{"body_text", t.BodyText, &out.BodyText},
	}
	for _, p := range parts {
		rendered, err := s.renderer.Render("", p.body, vars)
		if err != nil {
			return nil, apperr.Validationf("%s: %v", p.name, err)
		}
		*p.dst = rendered
		out.Warnings = append(out.Warnings, s.renderer.ValidateVariables(p.body, vars)...)
	}
	return out, nil
}

// VariablesInfo lists the contact variables templates can reference.
type VariablesInfo struct {
	Variables []string `json:"variables"`
	Usage     string   `json:"usage"`
}

func (s *Service) Variables() VariablesInfo {
	return VariablesInfo{
		Variables: append([]string(nil), domain.TemplateVariables...),
		Usage:     "Use {{ variableName }} Liquid syntax, e.g. {{ firstName | default: 'there' }}",
	}
}
