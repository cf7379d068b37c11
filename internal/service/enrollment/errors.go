package enrollment

import (
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/apperr"
)

// Sentinel errors for the enrollment service layer.
var (
	ErrNotFound            = apperr.New(apperr.KindNotFound, "enrollment not found")
	ErrAlreadyEnrolled     = apperr.New(apperr.KindDuplicateEnrollment, "contact is already enrolled in this sequence")
	ErrPriorEnrollment     = apperr.New(apperr.KindDuplicateEnrollment, "contact has a finished enrollment in this sequence; remove it first")
	ErrDuplicateInBatch    = apperr.New(apperr.KindDuplicateEnrollment, "contact appears more than once in the batch")
	ErrSequenceNotActive   = apperr.New(apperr.KindSequenceNotActive, "sequence is not active")
	ErrNoSteps             = apperr.New(apperr.KindValidation, "sequence has no steps")
	ErrContactUnsubscribed = apperr.New(apperr.KindValidation, "contact is unsubscribed")
	ErrStaleVersion        = apperr.New(apperr.KindConcurrentModification, "enrollment was modified by another request")
	ErrBusy                = apperr.New(apperr.KindConcurrentModification, "enrollment is being updated by another request")
	ErrNoRemainingSteps    = apperr.New(apperr.KindInvalidTransition, "enrollment has no remaining steps")
)

func invalidTransition(op string, status domain.EnrollmentStatus) error {
	return apperr.Newf(apperr.KindInvalidTransition, "cannot %s an enrollment that is %s", op, status)
}

func wrongStepType(want, got domain.StepType) error {
	return apperr.Validationf("current step is a %s step, not %s", got, want)
}
