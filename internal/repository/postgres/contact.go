package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/contact"
)

// ContactRepo implements contact.Repository against PostgreSQL.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

const contactColumns = `
	id, email, first_name, last_name, phone, company, job_title, industry, status,
	segment, certified, certification_in_progress, multi_site_region,
	regulatory_exposure, headcount_over_threshold, visible_budget,
	icp_score, icp_tier, icp_rules_version,
	emails_sent, emails_opened, emails_clicked, last_contacted_at, last_replied_at,
	is_unsubscribed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var (
		c                      domain.Contact
		contacted, lastReplied sql.NullTime
	)
	s := &c.Signals
	err := row.Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.Company, &c.JobTitle, &c.Industry, &c.Status,
		&s.Segment, &s.Certified, &s.CertificationInProgress, &s.MultiSiteRegion,
		&s.RegulatoryExposure, &s.HeadcountOverThreshold, &s.VisibleBudget,
		&c.ICPScore, &c.ICPTier, &c.ICPRulesVersion,
		&c.EmailsSent, &c.EmailsOpened, &c.EmailsClicked, &contacted, &lastReplied,
		&c.IsUnsubscribed, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LastContactedAt = timePtr(contacted)
	c.LastRepliedAt = timePtr(lastReplied)
	return &c, nil
}

func (r *ContactRepo) Get(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, contact.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// tierOrder sorts tier_1 first, unknown tiers last.
const tierOrder = `CASE icp_tier WHEN 'tier_1' THEN 0 WHEN 'tier_2' THEN 1 WHEN 'tier_3' THEN 2 WHEN 'non_target' THEN 3 ELSE 4 END`

func (r *ContactRepo) List(ctx context.Context, f contact.ListFilter) ([]domain.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []any
	idx := 1
	if f.Tier != "" {
		q += fmt.Sprintf(" AND icp_tier = $%d", idx)
		args = append(args, f.Tier)
		idx++
	}
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += fmt.Sprintf(" AND (first_name || ' ' || last_name || ' ' || email || ' ' || company) ILIKE $%d", idx)
		args = append(args, "%"+s+"%")
		idx++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += fmt.Sprintf(" ORDER BY %s, icp_score DESC, id LIMIT $%d OFFSET $%d", tierOrder, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	s := c.Signals
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`, c.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.Company, c.JobTitle, c.Industry, c.Status,
		s.Segment, s.Certified, s.CertificationInProgress, s.MultiSiteRegion,
		s.RegulatoryExposure, s.HeadcountOverThreshold, s.VisibleBudget,
		c.ICPScore, c.ICPTier, c.ICPRulesVersion,
		c.EmailsSent, c.EmailsOpened, c.EmailsClicked, nullTime(c.LastContactedAt), nullTime(c.LastRepliedAt),
		c.IsUnsubscribed, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err, "contacts_email_key") {
		return contact.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// Update reads the row FOR UPDATE so signal writes and the score derived
// from them are serialized per contact.
func (r *ContactRepo) Update(ctx context.Context, id string, fn contact.UpdateFunc) (*domain.Contact, error) {
	var out *domain.Contact
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := scanContact(tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1 FOR UPDATE`, id))
		if err == sql.ErrNoRows {
			return contact.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock contact: %w", err)
		}
		act, err := fn(c)
		if err != nil {
			return err
		}
		s := c.Signals
		if _, err := tx.ExecContext(ctx, `
			UPDATE contacts SET
				first_name = $2, last_name = $3, phone = $4, company = $5, job_title = $6,
				industry = $7, status = $8, segment = $9, certified = $10,
				certification_in_progress = $11, multi_site_region = $12,
				regulatory_exposure = $13, headcount_over_threshold = $14, visible_budget = $15,
				icp_score = $16, icp_tier = $17, icp_rules_version = $18, updated_at = $19
			WHERE id = $1
		`, c.ID, c.FirstName, c.LastName, c.Phone, c.Company, c.JobTitle,
			c.Industry, c.Status, s.Segment, s.Certified,
			s.CertificationInProgress, s.MultiSiteRegion,
			s.RegulatoryExposure, s.HeadcountOverThreshold, s.VisibleBudget,
			c.ICPScore, c.ICPTier, c.ICPRulesVersion, c.UpdatedAt); err != nil {
			return fmt.Errorf("update contact: %w", err)
		}
		if act != nil {
			if err := insertActivity(ctx, tx, *act); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContactRepo) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list contact ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan contact id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// applyTouch mirrors domain.ContactTouch.ApplyTo in SQL.
// Activities returns the newest activities of a contact first, including
// contact-level entries and those of deleted enrollments.
func (r *ContactRepo) Activities(ctx context.Context, contactID string, limit int) ([]domain.Activity, error) {
	return listActivities(ctx, r.db, `SELECT `+activityColumns+` FROM activities
		WHERE contact_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2`, contactID, limit)
}

func applyTouch(ctx context.Context, q querier, t *domain.ContactTouch) error {
	res, err := q.ExecContext(ctx, `
		UPDATE contacts SET
			emails_sent       = emails_sent + CASE WHEN $2 THEN 1 ELSE 0 END,
			last_contacted_at = COALESCE($3, last_contacted_at),
			last_replied_at   = COALESCE($4, last_replied_at),
			status = CASE
				WHEN $5 <> '' THEN $5
				WHEN $6 <> '' AND status = 'new' THEN $6
				ELSE status END,
			is_unsubscribed = is_unsubscribed OR $7,
			updated_at = $8
		WHERE id = $1
	`, t.ContactID, t.IncEmailsSent, nullTime(t.LastContactedAt), nullTime(t.LastRepliedAt),
		string(t.SetStatus), string(t.PromoteNew), t.Unsubscribe, t.At)
	if err != nil {
		return fmt.Errorf("touch contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contact.ErrNotFound
	}
	return nil
}
