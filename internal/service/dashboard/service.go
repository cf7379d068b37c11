// Package dashboard computes the outreach KPIs shown on the operator
// dashboard. It only reads.
package dashboard

import (
	"context"
	"math"
	"time"
)

// WindowDays is the look-back of the activity counters.
const WindowDays = 30

// Counts are the raw aggregates a Repository returns.
type Counts struct {
	TotalContacts         int
	ContactsInSequence    int // distinct contacts with an active enrollment
	ContactsNew           int
	ContactsEngaged       int
	ContactsMeetingBooked int

	EmailsSent    int
	EmailsReplied int
	EmailsBounced int
	Calls         int // call_made, call_answered and call_no_answer

	ActiveSequences int
	TotalSequences  int
}

// Repository aggregates counts; activity counters cover occurred_at >= since.
type Repository interface {
	Counts(ctx context.Context, since time.Time) (Counts, error)
}

// Stats is the dashboard payload.
type Stats struct {
	TotalContacts         int `json:"total_contacts"`
	ContactsInSequence    int `json:"contacts_in_sequence"`
	ContactsNew           int `json:"contacts_new"`
	ContactsEngaged       int `json:"contacts_engaged"`
	ContactsMeetingBooked int `json:"contacts_meeting_booked"`

	EmailsSent    int     `json:"emails_sent_30d"`
	EmailsReplied int     `json:"emails_replied_30d"`
	EmailsBounced int     `json:"emails_bounced_30d"`
	Calls         int     `json:"calls_30d"`
	ReplyRate     float64 `json:"reply_rate"`
	BounceRate    float64 `json:"bounce_rate"`

	ActiveSequences int `json:"active_sequences"`
	TotalSequences  int `json:"total_sequences"`

	Since time.Time `json:"since"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats returns the KPIs as of at.
func (s *Service) Stats(ctx context.Context, at time.Time) (*Stats, error) {
	since := at.AddDate(0, 0, -WindowDays)
	c, err := s.repo.Counts(ctx, since)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalContacts:         c.TotalContacts,
		ContactsInSequence:    c.ContactsInSequence,
		ContactsNew:           c.ContactsNew,
		ContactsEngaged:       c.ContactsEngaged,
		ContactsMeetingBooked: c.ContactsMeetingBooked,
		EmailsSent:            c.EmailsSent,
		EmailsReplied:         c.EmailsReplied,
		EmailsBounced:         c.EmailsBounced,
		Calls:                 c.Calls,
		ReplyRate:             percent(c.EmailsReplied, c.EmailsSent),
		BounceRate:            percent(c.EmailsBounced, c.EmailsSent),
		ActiveSequences:       c.ActiveSequences,
		TotalSequences:        c.TotalSequences,
		Since:                 since,
	}, nil
}

// percent is part/total*100 rounded to one decimal, 0 when total is 0.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
