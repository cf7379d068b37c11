package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

// SequenceRepo implements sequence.Repository and enrollment.SequenceReader
// against PostgreSQL.
type SequenceRepo struct{ db *sql.DB }

// NewSequenceRepo creates a Postgres-backed sequence repository.
func NewSequenceRepo(db *sql.DB) *SequenceRepo { return &SequenceRepo{db: db} }

func (r *SequenceRepo) Get(ctx context.Context, id string) (*domain.Sequence, error) {
	s := &domain.Sequence{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, target_industry, target_persona, status, created_at, updated_at
		FROM sequences
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.TargetIndustry, &s.TargetPersona, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, sequence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	steps, err := listSteps(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	s.Steps = steps
	return s, nil
}

func listSteps(ctx context.Context, q querier, sequenceID string) ([]domain.Step, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, sequence_id, step_order, step_type, delay_days,
		       COALESCE(template_id::text, ''), subject_override, description
		FROM sequence_steps
		WHERE sequence_id = $1
		ORDER BY step_order
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()
	var out []domain.Step
	for rows.Next() {
		var st domain.Step
		if err := rows.Scan(&st.ID, &st.SequenceID, &st.Order, &st.Type, &st.DelayDays,
			&st.TemplateID, &st.SubjectOverride, &st.Description); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SequenceRepo) List(ctx context.Context, status domain.SequenceStatus) ([]domain.Sequence, error) {
	q := `
		SELECT s.id, s.name, s.description, s.target_industry, s.target_persona, s.status,
		       s.created_at, s.updated_at,
		       COUNT(e.id), COUNT(e.id) FILTER (WHERE e.status = 'active')
		FROM sequences s
		LEFT JOIN enrollments e ON e.sequence_id = s.id`
	var args []any
	if status != "" {
		q += ` WHERE s.status = $1`
		args = append(args, status)
	}
	q += ` GROUP BY s.id ORDER BY s.created_at DESC, s.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()
	var out []domain.Sequence
	for rows.Next() {
		var s domain.Sequence
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.TargetIndustry, &s.TargetPersona, &s.Status,
			&s.CreatedAt, &s.UpdatedAt, &s.TotalEnrolled, &s.ActiveEnrolled); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SequenceRepo) Create(ctx context.Context, s *domain.Sequence) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sequences (id, name, description, target_industry, target_persona, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, s.ID, s.Name, s.Description, s.TargetIndustry, s.TargetPersona, s.Status, s.CreatedAt, s.UpdatedAt); err != nil {
			return fmt.Errorf("create sequence: %w", err)
		}
		for i := range s.Steps {
			if err := insertStep(ctx, tx, &s.Steps[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertStep(ctx context.Context, q querier, st *domain.Step) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sequence_steps (id, sequence_id, step_order, step_type, delay_days, template_id, subject_override, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, st.ID, st.SequenceID, st.Order, st.Type, st.DelayDays, nullString(st.TemplateID), st.SubjectOverride, st.Description)
	if isUniqueViolation(err, "") {
		return sequence.ErrStepOrderTaken
	}
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// AddStep locks the sequence row so a concurrent publish cannot slip in
// between the draft check and the insert.
func (r *SequenceRepo) AddStep(ctx context.Context, st *domain.Step) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status domain.SequenceStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM sequences WHERE id = $1 FOR UPDATE`, st.SequenceID).Scan(&status)
		if err == sql.ErrNoRows {
			return sequence.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock sequence: %w", err)
		}
		if status != domain.SequenceDraft {
			return sequence.ErrNotDraft
		}
		return insertStep(ctx, tx, st)
	})
}

// SetStatus holds the sequence row FOR UPDATE for the whole transaction.
// Enroll takes FOR SHARE on the same row, so an enrollment either commits
// before the live list below is read or sees the new status.
func (r *SequenceRepo) SetStatus(ctx context.Context, id string, from, to domain.SequenceStatus, at time.Time, closeLive sequence.CloseLiveFunc) (enrollment.Change, error) {
	var change enrollment.Change
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var cur domain.SequenceStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM sequences WHERE id = $1 FOR UPDATE`, id).Scan(&cur)
		if err == sql.ErrNoRows {
			return sequence.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock sequence: %w", err)
		}
		if cur != from {
			return sequence.ErrStatusConflict
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sequences SET status = $2, updated_at = $3 WHERE id = $1`, id, to, at); err != nil {
			return fmt.Errorf("set sequence status: %w", err)
		}
		if closeLive == nil {
			return nil
		}
		live, err := listEnrollments(ctx, tx, `SELECT `+enrollmentColumns+` FROM enrollments
			WHERE sequence_id = $1 AND status IN ('active', 'paused')
			ORDER BY enrolled_at, id FOR UPDATE`, id)
		if err != nil {
			return err
		}
		change = closeLive(live)
		return applyChange(ctx, tx, change)
	})
	if err != nil {
		return enrollment.Change{}, err
	}
	return change, nil
}
