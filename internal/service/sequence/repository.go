package sequence

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/enrollment"
)

// Repository defines the data access contract for sequences.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a sequence with its steps ordered by step order.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Sequence, error)

	// List returns sequences with enrollment stats, newest first.
	List(ctx context.Context, status domain.SequenceStatus) ([]domain.Sequence, error)

	// Create inserts a draft sequence and any initial steps.
	Create(ctx context.Context, seq *domain.Sequence) error

	// AddStep appends a step. Returns ErrNotDraft unless the sequence is
	// still a draft and ErrStepOrderTaken on a duplicate order.
	AddStep(ctx context.Context, step *domain.Step) error

	// SetStatus moves the sequence from one status to another. When
	// closeLive is set, the live enrollments of the sequence are read and
	// closeLive's change is committed in the same transaction as the status
	// write, with the sequence row locked throughout. Returns the committed
	// change, or ErrStatusConflict if the stored status is no longer from.
	SetStatus(ctx context.Context, id string, from, to domain.SequenceStatus, at time.Time, closeLive CloseLiveFunc) (enrollment.Change, error)
}

// CloseLiveFunc builds the change that ends the given live enrollments.
type CloseLiveFunc func(live []domain.Enrollment) enrollment.Change
