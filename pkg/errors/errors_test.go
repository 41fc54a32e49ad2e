package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(NotFound("doctor", nil)))
	assert.Equal(t, ErrSlotConflict, CodeOf(SlotConflict("taken")))
	assert.Equal(t, ErrInternal, CodeOf(errors.New("plain")))
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("failed to create appointment: %w", ConstraintViolation("overlap", nil))
	assert.Equal(t, ErrConstraintViolation, CodeOf(err))
	assert.True(t, IsCode(err, ErrConstraintViolation))
	assert.False(t, IsCode(err, ErrConflict))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "doctor not found", NotFound("doctor", nil).Error())

	withCause := BadRequest("invalid start", errors.New("parse failed"))
	assert.Contains(t, withCause.Error(), "invalid start")
	assert.Contains(t, withCause.Error(), "parse failed")
}
