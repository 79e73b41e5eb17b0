package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	err := Clone(ErrInvalidTransition, "incident must be OPEN")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "incident must be OPEN", err.Message)
	assert.Equal(t, ErrInvalidTransition.Message, "invalid status transition")
}

func TestMissingFieldsListsEveryField(t *testing.T) {
	err := MissingFields("rootCause", "correctiveAction", "preventiveAction")
	require.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, []string{"rootCause", "correctiveAction", "preventiveAction"}, err.Details["fields"])
	assert.Nil(t, ErrMissingField.Details)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	raw := errors.New("connection refused")
	appErr := FromError(raw)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, raw)
}
