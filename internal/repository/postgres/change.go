package postgres

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// applyChange writes every transition as a compare-and-swap on version,
// then the activities and the contact touch. Callers own the transaction.
func applyChange(ctx context.Context, q querier, c enrollment.Change) error {
	for _, t := range c.Transitions {
		if err := casEnrollment(ctx, q, t); err != nil {
			return err
		}
		if err := insertActivity(ctx, q, t.Activity); err != nil {
			return err
		}
	}
	for _, a := range c.Activities {
		if err := insertActivity(ctx, q, a); err != nil {
			return err
		}
	}
	if c.Touch != nil {
		return applyTouch(ctx, q, c.Touch)
	}
	return nil
}

func casEnrollment(ctx context.Context, q querier, t enrollment.Transition) error {
	e := t.Enrollment
	res, err := q.ExecContext(ctx, `
		UPDATE enrollments SET
			current_step = $3, status = $4, next_due_at = $5, paused_at = $6,
			frozen_due_at = $7, completed_at = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`, e.ID, t.ExpectedVersion, e.CurrentStep, e.Status, nullTime(e.NextDueAt), nullTime(e.PausedAt),
		nullTime(e.FrozenDueAt), nullTime(e.CompletedAt), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if !exists {
			return enrollment.ErrNotFound
		}
		return enrollment.ErrStaleVersion
	}
	return nil
}

func insertActivity(ctx context.Context, q querier, a domain.Activity) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO activities (id, enrollment_id, contact_id, sequence_id, step_index, activity_type, note, message_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, nullString(a.EnrollmentID), a.ContactID, nullString(a.SequenceID),
		a.StepIndex, a.Type, a.Note, a.MessageID, a.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
