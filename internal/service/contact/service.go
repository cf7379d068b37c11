package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/scoring"
)

// Service implements contact registry logic.
type Service struct {
	repo Repository

	mu     sync.RWMutex
	scorer *scoring.Engine
}

// NewService creates a contact service scoring with scorer.
func NewService(repo Repository, scorer *scoring.Engine) *Service {
	return &Service{repo: repo, scorer: scorer}
}

// Scorer returns the engine currently used for scoring.
func (s *Service) Scorer() *scoring.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scorer
}

// SetScorer swaps the rule table for subsequent scoring. Stored scores are
// only refreshed by Rescore/RescoreAll.
func (s *Service) SetScorer(e *scoring.Engine) {
	s.mu.Lock()
	s.scorer = e
	s.mu.Unlock()
}

// CreateInput holds the fields of a new contact.
type CreateInput struct {
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone"`
	Company   string         `json:"company"`
	JobTitle  string         `json:"job_title"`
	Industry  string         `json:"industry"`
	Signals   domain.Signals `json:"signals"`
}

// Create validates and persists a new contact with its initial score.
func (s *Service) Create(ctx context.Context, in CreateInput, at time.Time) (*domain.Contact, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validationf("invalid email %q", in.Email)
	}
	if in.Signals.Segment != "" && !in.Signals.Segment.Valid() {
		return nil, apperr.Validationf("unknown segment %q", in.Signals.Segment)
	}

	c := &domain.Contact{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     in.Phone,
		Company:   strings.TrimSpace(in.Company),
		JobTitle:  in.JobTitle,
		Industry:  in.Industry,
		Status:    domain.ContactNew,
		Signals:   in.Signals,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if c.Signals.Segment == "" {
		c.Signals.Segment = scoring.DetectSegment(c.Company)
	}
	s.Scorer().Apply(c)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("contact created", "contact_id", c.ID, "email", c.Email, "tier", c.ICPTier)
	return c, nil
}

// Get returns a single contact.
func (s *Service) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return s.repo.Get(ctx, id)
}

// List returns contacts matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Contact, error) {
	if f.Tier != "" && f.Tier.Rank() > domain.NonTarget.Rank() {
		return nil, apperr.Validationf("unknown tier %q", f.Tier)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

// Activities returns the timeline of a contact across all its enrollments,
// newest first. limit defaults to 50 and may not exceed 200.
func (s *Service) Activities(ctx context.Context, id string, limit int) ([]domain.Activity, error) {
	switch {
	case limit == 0:
		limit = 50
	case limit < 0 || limit > 200:
		return nil, apperr.Validationf("limit must be between 1 and 200")
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Activities(ctx, id, limit)
}

// ScoredContact is a contact together with the score breakdown just
// computed for it.
type ScoredContact struct {
	Contact *domain.Contact `json:"contact"`
	Score   scoring.Result  `json:"score"`
	Changed bool            `json:"changed"`
}

// UpdateSignals applies patch and recomputes the score in the same
// transaction, so the stored score never lags the stored signals.
func (s *Service) UpdateSignals(ctx context.Context, id string, patch domain.SignalsPatch, at time.Time) (*ScoredContact, error) {
	if patch.Segment != nil && *patch.Segment != "" && !patch.Segment.Valid() {
		return nil, apperr.Validationf("unknown segment %q", *patch.Segment)
	}
	return s.rescore(ctx, id, at, func(c *domain.Contact) {
		c.Signals = patch.Apply(c.Signals)
		if c.Signals.Segment == "" {
			c.Signals.Segment = scoring.DetectSegment(c.Company)
		}
	})
}

// Rescore recomputes one contact's score with the current rule table.
func (s *Service) Rescore(ctx context.Context, id string, at time.Time) (*ScoredContact, error) {
	return s.rescore(ctx, id, at, nil)
}

func (s *Service) rescore(ctx context.Context, id string, at time.Time, mutate func(*domain.Contact)) (*ScoredContact, error) {
	scorer := s.Scorer()
	out := &ScoredContact{}
	c, err := s.repo.Update(ctx, id, func(c *domain.Contact) (*domain.Activity, error) {
		if mutate != nil {
			mutate(c)
		}
		prevScore, prevTier := c.ICPScore, c.ICPTier
		res, changed := scorer.Apply(c)
		c.UpdatedAt = at
		out.Score, out.Changed = res, changed
		if !changed {
			return nil, nil
		}
		return &domain.Activity{
			ID:         uuid.NewString(),
			ContactID:  c.ID,
			Type:       domain.ActivityScoreChanged,
			Note:       fmt.Sprintf("%s %.1f -> %s %.1f (rules %s)", prevTier, prevScore, res.Tier, res.Score, res.Version),
			OccurredAt: at,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	out.Contact = c
	return out, nil
}

// RescoreSummary reports a RescoreAll run.
type RescoreSummary struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// RescoreAll recomputes every contact, one transaction per contact.
func (s *Service) RescoreAll(ctx context.Context, at time.Time) (RescoreSummary, error) {
	var sum RescoreSummary
	ids, err := s.repo.IDs(ctx)
	if err != nil {
		return sum, fmt.Errorf("list contact ids: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.Rescore(ctx, id, at)
		sum.Checked++
		if err != nil {
			sum.Failed++
			logger.Warn("rescore failed", "contact_id", id, "err", err)
			continue
		}
		if res.Changed {
			sum.Changed++
		}
	}
	logger.Info("rescore finished", "checked", sum.Checked, "changed", sum.Changed, "failed", sum.Failed)
	return sum, nil
}
