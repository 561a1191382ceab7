package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedAppError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("slot", nil))

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
	assert.False(t, Is(errors.New("plain"), ErrNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCapacityExceeded, CodeOf(CapacityExceeded("slot is full")))
	assert.Equal(t, ErrForbidden, CodeOf(fmt.Errorf("wrap: %w", Forbidden("nope", nil))))
	assert.Equal(t, ErrInternal, CodeOf(errors.New("plain")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}
