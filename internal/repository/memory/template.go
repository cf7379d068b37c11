package memory

import (
	"context"
	"sort"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/template"
)

// TemplateRepo implements template.Repository.
type TemplateRepo struct{ s *Store }

func (r *TemplateRepo) Get(_ context.Context, id string) (*domain.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, template.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TemplateRepo) List(_ context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.EmailTemplate
	for _, t := range r.s.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TemplateRepo) Create(_ context.Context, t *domain.EmailTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}
