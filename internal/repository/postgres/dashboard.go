package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/outreach-engine/internal/service/dashboard"
)

// DashboardRepo implements dashboard.Repository against PostgreSQL.
type DashboardRepo struct{ db *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{db: db} }

func (r *DashboardRepo) Counts(ctx context.Context, since time.Time) (dashboard.Counts, error) {
	var c dashboard.Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(DISTINCT contact_id) FROM enrollments WHERE status = 'active'),
			(SELECT COUNT(*) FROM contacts WHERE status = 'new'),
			(SELECT COUNT(*) FROM contacts WHERE status = 'engaged'),
			(SELECT COUNT(*) FROM contacts WHERE status = 'meeting_booked'),
			a.sent, a.replied, a.bounced, a.calls,
			(SELECT COUNT(*) FROM sequences WHERE status = 'active'),
			(SELECT COUNT(*) FROM sequences)
		FROM (
			SELECT
				COUNT(*) FILTER (WHERE activity_type = 'email_sent') AS sent,
				COUNT(*) FILTER (WHERE activity_type = 'email_replied') AS replied,
				COUNT(*) FILTER (WHERE activity_type = 'email_bounced') AS bounced,
				COUNT(*) FILTER (WHERE activity_type IN ('call_made', 'call_answered', 'call_no_answer')) AS calls
			FROM activities
			WHERE occurred_at >= $1
		) a
	`, since).Scan(
		&c.TotalContacts, &c.ContactsInSequence,
		&c.ContactsNew, &c.ContactsEngaged, &c.ContactsMeetingBooked,
		&c.EmailsSent, &c.EmailsReplied, &c.EmailsBounced, &c.Calls,
		&c.ActiveSequences, &c.TotalSequences,
	)
	if err != nil {
		return dashboard.Counts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}
