package memory

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/dashboard"
)

// DashboardRepo implements dashboard.Repository.
type DashboardRepo struct{ s *Store }

func (r *DashboardRepo) Counts(_ context.Context, since time.Time) (dashboard.Counts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var c dashboard.Counts
	c.TotalContacts = len(r.s.contacts)
	for _, ct := range r.s.contacts {
		switch ct.Status {
		case domain.ContactNew:
			c.ContactsNew++
		case domain.ContactEngaged:
			c.ContactsEngaged++
		case domain.ContactMeetingBooked:
			c.ContactsMeetingBooked++
		}
	}

	inSequence := make(map[string]bool)
	for _, e := range r.s.enrollments {
		if e.Status == domain.EnrollmentActive {
			inSequence[e.ContactID] = true
		}
	}
	c.ContactsInSequence = len(inSequence)

	for _, a := range r.s.activities {
		if a.OccurredAt.Before(since) {
			continue
		}
		switch a.Type {
		case domain.ActivityEmailSent:
			c.EmailsSent++
		case domain.ActivityEmailReplied:
			c.EmailsReplied++
		case domain.ActivityEmailBounced:
			c.EmailsBounced++
		case domain.ActivityCallMade, domain.ActivityCallAnswered, domain.ActivityCallNoAnswer:
			c.Calls++
		}
	}

	c.TotalSequences = len(r.s.sequences)
	for _, seq := range r.s.sequences {
		if seq.Status == domain.SequenceActive {
			c.ActiveSequences++
		}
	}
	return c, nil
}
