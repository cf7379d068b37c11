package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/template"
)

// TemplateRepo implements template.Repository against PostgreSQL.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

const templateColumns = `id, name, subject, body_html, body_text, category, is_active, created_at, updated_at`

func scanTemplate(row rowScanner) (*domain.EmailTemplate, error) {
	t := &domain.EmailTemplate{}
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.BodyHTML, &t.BodyText, &t.Category, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, template.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	q := `SELECT ` + templateColumns + ` FROM email_templates`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []domain.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) Create(ctx context.Context, t *domain.EmailTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Name, t.Subject, t.BodyHTML, t.BodyText, t.Category, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}
