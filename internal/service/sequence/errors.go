package sequence

import "github.com/ignite/outreach-engine/internal/pkg/apperr"

// Sentinel errors for the sequence service layer.
var (
	ErrNotFound       = apperr.New(apperr.KindNotFound, "sequence not found")
	ErrNotDraft       = apperr.New(apperr.KindInvalidTransition, "steps can only be added to draft sequences")
	ErrNoSteps        = apperr.New(apperr.KindValidation, "a sequence needs at least one step before it can be activated")
	ErrStatusConflict = apperr.New(apperr.KindConcurrentModification, "sequence status changed concurrently")
	ErrStepOrderTaken = apperr.New(apperr.KindValidation, "a step with this order already exists")
)
