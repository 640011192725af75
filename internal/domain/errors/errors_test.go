package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAttributionError(t *testing.T) {
	assert.True(t, IsAttributionError(fmt.Errorf("reconcile: %w", ErrMissingUserID)))
	assert.True(t, IsAttributionError(ErrUserNotFound))
	assert.False(t, IsAttributionError(ErrInvalidPeriod))
	assert.False(t, IsAttributionError(nil))
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(ErrPaymentIncomplete))
	assert.True(t, IsSkippable(fmt.Errorf("purchase: %w", ErrUserNotFound)))
	assert.False(t, IsSkippable(errors.New("connection reset")))
}

func TestDirectoryErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewDirectoryError(DirectoryErrorTypeRequest, "failed to list users", 0, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "REQUEST_FAILED")

	statusErr := NewDirectoryError(DirectoryErrorTypeStatus, "admin users", 503, nil)
	assert.Contains(t, statusErr.Error(), "status 503")
}
