package enrollment

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository defines the data access contract for enrollments and their
// activities. Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns one enrollment. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Enrollment, error)

	// FindByPair returns the enrollment of contactID in sequenceID, or
	// ErrNotFound.
	FindByPair(ctx context.Context, contactID, sequenceID string) (*domain.Enrollment, error)

	// Create inserts e and its "enrolled" activity atomically. Returns
	// ErrAlreadyEnrolled if the pair exists and ErrSequenceNotActive if the
	// sequence stopped being active before the insert.
	Create(ctx context.Context, e *domain.Enrollment, act domain.Activity) error

	// Apply commits a Change atomically. Every transition is a
	// compare-and-swap on its expected version; any mismatch rolls the whole
	// change back with ErrStaleVersion.
	Apply(ctx context.Context, c Change) error

	// Delete removes a terminal enrollment. Its activities are kept.
	Delete(ctx context.Context, id string) error

	// ListBySequence returns enrollments of a sequence, optionally filtered
	// by status, ordered by enrolled_at.
	ListBySequence(ctx context.Context, sequenceID string, status domain.EnrollmentStatus) ([]domain.Enrollment, error)

	// ListLiveByContact returns the active and paused enrollments of a
	// contact.
	ListLiveByContact(ctx context.Context, contactID string) ([]domain.Enrollment, error)

	// Activities returns the audit trail of an enrollment, oldest first.
	Activities(ctx context.Context, enrollmentID string) ([]domain.Activity, error)
}

// ContactReader loads contacts. Unknown ids yield an error of kind
// not_found.
type ContactReader interface {
	Get(ctx context.Context, id string) (*domain.Contact, error)
}

// SequenceReader loads sequences with their ordered steps. Unknown ids
// yield an error of kind not_found.
type SequenceReader interface {
	Get(ctx context.Context, id string) (*domain.Sequence, error)
}

// Transition is one enrollment write guarded by the version it was read at.
type Transition struct {
	Enrollment      domain.Enrollment
	ExpectedVersion int64
	Activity        domain.Activity
}

// Change is the unit the repository commits in one transaction.
type Change struct {
	Transitions []Transition
	// Activities holds contact-level records with no enrollment.
	Activities []domain.Activity
	Touch      *domain.ContactTouch
}

// AllActivities returns every activity the change appends.
func (c Change) AllActivities() []domain.Activity {
	out := make([]domain.Activity, 0, len(c.Transitions)+len(c.Activities))
	for _, t := range c.Transitions {
		out = append(out, t.Activity)
	}
	return append(out, c.Activities...)
}
