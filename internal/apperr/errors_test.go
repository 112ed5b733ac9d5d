package apperr_test

import (
	"errors"
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	validation := &apperr.ValidationError{}
	require.NoError(t, validation.OrNil())

	validation.Add("phone", "This field is required.")
	validation.Add("phone", "ignored")
	validation.Add("candidate_name", "This field is required.")

	err := validation.OrNil()
	require.Error(t, err)
	require.Equal(t, "This field is required.", validation.Fields["phone"])
	require.Equal(t,
		"validation failed: candidate_name: This field is required.; phone: This field is required.",
		err.Error(),
	)
}

func TestWrappedSentinels(t *testing.T) {
	t.Parallel()

	forbidden := apperr.Forbidden("You do not have permission to perform this action.")
	require.ErrorIs(t, forbidden, apperr.ErrForbidden)
	require.Equal(t, "You do not have permission to perform this action.", apperr.Message(forbidden))

	notFound := apperr.NotFound("enquiry")
	require.ErrorIs(t, notFound, apperr.ErrNotFound)
	require.False(t, errors.Is(notFound, apperr.ErrForbidden))
	require.Equal(t, "enquiry", apperr.Message(notFound))
}
