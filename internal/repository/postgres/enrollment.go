package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
	"github.com/ignite/outreach-engine/internal/service/sequence"
)

// EnrollmentRepo implements enrollment.Repository against PostgreSQL.
type EnrollmentRepo struct{ db *sql.DB }

// NewEnrollmentRepo creates a Postgres-backed enrollment repository.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

const enrollmentColumns = `
	id, contact_id, sequence_id, current_step, status, enrolled_at,
	next_due_at, paused_at, frozen_due_at, completed_at, version, updated_at`

func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var (
		e                             domain.Enrollment
		due, paused, frozen, finished sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.ContactID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.EnrolledAt,
		&due, &paused, &frozen, &finished, &e.Version, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.NextDueAt = timePtr(due)
	e.PausedAt = timePtr(paused)
	e.FrozenDueAt = timePtr(frozen)
	e.CompletedAt = timePtr(finished)
	return &e, nil
}

func (r *EnrollmentRepo) Get(ctx context.Context, id string) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, enrollment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

func (r *EnrollmentRepo) FindByPair(ctx context.Context, contactID, sequenceID string) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE contact_id = $1 AND sequence_id = $2`,
		contactID, sequenceID))
	if err == sql.ErrNoRows {
		return nil, enrollment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return e, nil
}

// Create holds a share lock on the sequence row so archiving cannot commit
// between the status check and the insert.
func (r *EnrollmentRepo) Create(ctx context.Context, e *domain.Enrollment, act domain.Activity) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status domain.SequenceStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM sequences WHERE id = $1 FOR SHARE`, e.SequenceID).Scan(&status)
		if err == sql.ErrNoRows {
			return sequence.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock sequence: %w", err)
		}
		if status != domain.SequenceActive {
			return enrollment.ErrSequenceNotActive
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO enrollments (`+enrollmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, e.ID, e.ContactID, e.SequenceID, e.CurrentStep, e.Status, e.EnrolledAt,
			nullTime(e.NextDueAt), nullTime(e.PausedAt), nullTime(e.FrozenDueAt), nullTime(e.CompletedAt),
			e.Version, e.UpdatedAt)
		if isUniqueViolation(err, "enrollments_contact_sequence_key") {
			return enrollment.ErrAlreadyEnrolled
		}
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		return insertActivity(ctx, tx, act)
	})
}

func (r *EnrollmentRepo) Apply(ctx context.Context, c enrollment.Change) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return applyChange(ctx, tx, c)
	})
}

func (r *EnrollmentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (r *EnrollmentRepo) ListBySequence(ctx context.Context, sequenceID string, status domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE sequence_id = $1`
	args := []any{sequenceID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, status)
	}
	q += ` ORDER BY enrolled_at, id`
	return r.list(ctx, q, args...)
}

func (r *EnrollmentRepo) ListLiveByContact(ctx context.Context, contactID string) ([]domain.Enrollment, error) {
	return r.list(ctx, `SELECT `+enrollmentColumns+` FROM enrollments
		WHERE contact_id = $1 AND status IN ('active', 'paused')
		ORDER BY enrolled_at, id`, contactID)
}

func (r *EnrollmentRepo) list(ctx context.Context, q string, args ...any) ([]domain.Enrollment, error) {
	return listEnrollments(ctx, r.db, q, args...)
}

func listEnrollments(ctx context.Context, db querier, q string, args ...any) ([]domain.Enrollment, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()
	var out []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

const activityColumns = `
	id, COALESCE(enrollment_id::text, ''), contact_id, COALESCE(sequence_id::text, ''),
	step_index, activity_type, note, message_id, occurred_at`

func (r *EnrollmentRepo) Activities(ctx context.Context, enrollmentID string) ([]domain.Activity, error) {
	return listActivities(ctx, r.db, `SELECT `+activityColumns+` FROM activities
		WHERE enrollment_id = $1
		ORDER BY occurred_at, id`, enrollmentID)
}

func listActivities(ctx context.Context, db querier, q string, args ...any) ([]domain.Activity, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.EnrollmentID, &a.ContactID, &a.SequenceID,
			&a.StepIndex, &a.Type, &a.Note, &a.MessageID, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
