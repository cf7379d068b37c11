package contact

import "github.com/ignite/outreach-engine/internal/pkg/apperr"

// Sentinel errors for the contact service layer.
var (
	ErrNotFound   = apperr.New(apperr.KindNotFound, "contact not found")
	ErrEmailTaken = apperr.New(apperr.KindValidation, "a contact with this email already exists")
)
