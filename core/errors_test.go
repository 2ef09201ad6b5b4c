package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	notFound := NewNotFoundError("application", "app-9")
	assert.EqualError(t, notFound, `application "app-9" not found`)
	assert.EqualError(t, NewNotFoundError("reviewer", ""), "reviewer not found")
	assert.True(t, IsNotFound(errors.Wrap(notFound, "getting application")))
	assert.False(t, IsNotFound(ErrConflict))

	invalid := NewFieldValidationError("status", "invalid status")
	assert.EqualError(t, invalid, "invalid status")
	assert.True(t, IsValidation(errors.Wrap(invalid, "transition")))
	assert.False(t, IsValidation(notFound))

	fields := NewValidationError(nil, FieldError{Field: "email", Error: "required"}, FieldError{Field: "name", Error: "required"})
	assert.EqualError(t, fields, "email: required; name: required")

	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity issue"), "serving")))
	assert.False(t, IsShutdown(invalid))
}
