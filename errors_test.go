package bugline_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", bugline.NewNotFoundError("bug", id), bugline.ErrItemNotFound},
		{"concurrency", bugline.NewConcurrencyError(id, 1, 2), bugline.ErrConcurrency},
		{"duplicate", bugline.NewDuplicateRecordError("user", "email", "a@b.c"), bugline.ErrDuplicateRecord},
		{"handler not found", bugline.NewHandlerNotFoundError("x"), bugline.ErrHandlerNotFound},
		{"validation", bugline.NewValidationError("x", "title", "required"), bugline.ErrValidationFailed},
		{"panic", bugline.NewPanicError("x", "boom", "stack"), bugline.ErrHandlerPanicked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			// Matching survives wrapping.
			assert.ErrorIs(t, fmt.Errorf("context: %w", tc.err), tc.sentinel)
		})
	}
}

func TestTypedErrorDetails(t *testing.T) {
	id := uuid.New()

	var nf *bugline.NotFoundError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", bugline.NewNotFoundError("bug", id)), &nf)
	assert.Equal(t, "bug", nf.Kind)
	assert.Equal(t, id, nf.ID)

	var ce *bugline.ConcurrencyError
	require.ErrorAs(t, bugline.NewConcurrencyError(id, 3, 4), &ce)
	assert.Equal(t, 3, ce.ExpectedVersion)
	assert.Equal(t, 4, ce.ActualVersion)

	var ve *bugline.ValidationError
	require.ErrorAs(t, bugline.NewValidationError("bug.create", "title", "required"), &ve)
	assert.Contains(t, ve.Error(), "title")

	assert.NotErrorIs(t, bugline.NewNotFoundError("bug", id), bugline.ErrConcurrency)
}

func TestValidationErrorMessageForms(t *testing.T) {
	withField := bugline.NewValidationError("bug.create", "title", "required")
	assert.Contains(t, withField.Error(), `field "title"`)

	withoutField := bugline.NewValidationError("bug.create", "", "bad payload")
	assert.NotContains(t, withoutField.Error(), "field")
	assert.Contains(t, withoutField.Error(), "bad payload")
}

func TestUnwrapChains(t *testing.T) {
	err := bugline.NewConcurrencyError(uuid.New(), 1, 2)
	assert.Equal(t, bugline.ErrConcurrency, errors.Unwrap(err))
}
