package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// ActionSource implements actions.Source with one joined query.
type ActionSource struct{ db *sql.DB }

// NewActionSource creates a Postgres-backed action source.
func NewActionSource(db *sql.DB) *ActionSource { return &ActionSource{db: db} }

// The current step is joined by position: the n-th step in step_order is
// index n-1.
const dueQuery = `
	WITH ranked AS (
		SELECT st.*, ROW_NUMBER() OVER (PARTITION BY st.sequence_id ORDER BY st.step_order) - 1 AS idx
		FROM sequence_steps st
	)
	SELECT e.id, e.contact_id, e.sequence_id, e.current_step, e.status, e.enrolled_at,
	       e.next_due_at, e.paused_at, e.frozen_due_at, e.completed_at, e.version, e.updated_at,
	       c.id, c.email, c.first_name, c.last_name, c.company, c.job_title, c.industry,
	       c.icp_score, c.icp_tier, c.is_unsubscribed,
	       s.id, s.name, s.status,
	       COALESCE(r.id::text, ''), COALESCE(r.step_order, 0), COALESCE(r.step_type, ''),
	       COALESCE(r.delay_days, 0), COALESCE(r.template_id::text, ''),
	       COALESCE(r.subject_override, ''), COALESCE(r.description, ''),
	       t.id, t.name, t.subject, t.body_html, t.body_text
	FROM enrollments e
	JOIN contacts c ON c.id = e.contact_id
	JOIN sequences s ON s.id = e.sequence_id
	LEFT JOIN ranked r ON r.sequence_id = e.sequence_id AND r.idx = e.current_step
	LEFT JOIN email_templates t ON t.id = r.template_id`

func (a *ActionSource) ListDue(ctx context.Context, cutoff time.Time) ([]domain.DueEnrollment, error) {
	rows, err := a.db.QueryContext(ctx, dueQuery+`
		WHERE e.status = 'active' AND s.status = 'active'
		  AND e.next_due_at IS NOT NULL AND e.next_due_at < $1
		ORDER BY e.next_due_at, e.id
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due enrollments: %w", err)
	}
	defer rows.Close()
	var out []domain.DueEnrollment
	for rows.Next() {
		d, err := scanDue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due enrollment: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (a *ActionSource) Current(ctx context.Context, enrollmentID string) (*domain.DueEnrollment, error) {
	d, err := scanDue(a.db.QueryRowContext(ctx, dueQuery+` WHERE e.id = $1`, enrollmentID))
	if err == sql.ErrNoRows {
		return nil, enrollment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get current step: %w", err)
	}
	return d, nil
}

func scanDue(row rowScanner) (*domain.DueEnrollment, error) {
	var (
		d                             domain.DueEnrollment
		due, paused, frozen, finished sql.NullTime
		tplID, tplName, tplSubject    sql.NullString
		tplHTML, tplText              sql.NullString
	)
	e, c, s, st := &d.Enrollment, &d.Contact, &d.Sequence, &d.Step
	err := row.Scan(
		&e.ID, &e.ContactID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.EnrolledAt,
		&due, &paused, &frozen, &finished, &e.Version, &e.UpdatedAt,
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Company, &c.JobTitle, &c.Industry,
		&c.ICPScore, &c.ICPTier, &c.IsUnsubscribed,
		&s.ID, &s.Name, &s.Status,
		&st.ID, &st.Order, &st.Type, &st.DelayDays, &st.TemplateID, &st.SubjectOverride, &st.Description,
		&tplID, &tplName, &tplSubject, &tplHTML, &tplText,
	)
	if err != nil {
		return nil, err
	}
	e.NextDueAt = timePtr(due)
	e.PausedAt = timePtr(paused)
	e.FrozenDueAt = timePtr(frozen)
	e.CompletedAt = timePtr(finished)
	st.SequenceID = s.ID
	if tplID.Valid {
		d.Template = &domain.EmailTemplate{
			ID:       tplID.String,
			Name:     tplName.String,
			Subject:  tplSubject.String,
			BodyHTML: tplHTML.String,
			BodyText: tplText.String,
		}
	}
	return &d, nil
}
