package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	errEnrollment := New(KindNotFound, "enrollment not found")
	errContact := New(KindNotFound, "contact not found")

	wrapped := fmt.Errorf("resolve: %w", errEnrollment)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, errEnrollment))
	assert.False(t, errors.Is(wrapped, errContact))
	assert.False(t, errors.Is(wrapped, ErrValidation))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("x: %w", Validationf("bad %d", 1))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindDuplicateEnrollment, "already enrolled"))
	assert.Equal(t, "already enrolled", Message(err))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "sequence_not_active", ErrSequenceNotActive.Error())
}
