package contact

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository defines the data access contract for contacts.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single contact. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Contact, error)

	// List returns contacts matching the filter, best tier first.
	List(ctx context.Context, f ListFilter) ([]domain.Contact, error)

	// Create inserts c. Returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, c *domain.Contact) error

	// Update locks the contact, lets fn mutate it and writes the result
	// together with the activity fn returns (if any) in one transaction.
	Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Contact, error)

	// IDs returns every contact id.
	IDs(ctx context.Context) ([]string, error)

	// Activities returns up to limit activities of a contact, newest first.
	Activities(ctx context.Context, contactID string, limit int) ([]domain.Activity, error)
}

// UpdateFunc mutates a locked contact. A returned activity is appended in
// the same transaction.
type UpdateFunc func(c *domain.Contact) (*domain.Activity, error)

// ListFilter controls filtering and pagination for contact lists.
type ListFilter struct {
	Tier   domain.Tier
	Status domain.ContactStatus
	Search string
	Limit  int
	Offset int
}
