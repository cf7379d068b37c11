package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/contact"
)

var errContactMissing = contact.ErrNotFound

// ContactRepo implements contact.Repository.
type ContactRepo struct{ s *Store }

func (r *ContactRepo) Get(_ context.Context, id string) (*domain.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ContactRepo) List(_ context.Context, f contact.ListFilter) ([]domain.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	search := strings.ToLower(f.Search)
	var out []domain.Contact
	for _, c := range r.s.contacts {
		if f.Tier != "" && c.ICPTier != f.Tier {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.FullName()+" "+c.Email+" "+c.Company), search) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].ICPTier.Rank(), out[j].ICPTier.Rank(); ri != rj {
			return ri < rj
		}
		if out[i].ICPScore != out[j].ICPScore {
			return out[i].ICPScore > out[j].ICPScore
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	end := f.Offset + f.Limit
	if f.Limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[f.Offset:end], nil
}

func (r *ContactRepo) Create(_ context.Context, c *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.contacts {
		if strings.EqualFold(existing.Email, c.Email) {
			return contact.ErrEmailTaken
		}
	}
	cp := *c
	r.s.contacts[c.ID] = &cp
	return nil
}

func (r *ContactRepo) Update(_ context.Context, id string, fn contact.UpdateFunc) (*domain.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	cp := *c
	act, err := fn(&cp)
	if err != nil {
		return nil, err
	}
	r.s.contacts[id] = &cp
	if act != nil {
		r.s.activities = append(r.s.activities, *act)
	}
	out := cp
	return &out, nil
}

func (r *ContactRepo) IDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.contacts))
	for id := range r.s.contacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *ContactRepo) Activities(_ context.Context, contactID string, limit int) ([]domain.Activity, error) {
	acts := r.s.ContactActivities(contactID)
	// newest first; insertion order breaks ties
	out := make([]domain.Activity, 0, len(acts))
	for i := len(acts) - 1; i >= 0; i-- {
		out = append(out, acts[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
