package errs

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicError(t *testing.T) {
	err := WithPublicMessage(errors.Wrap(NotFound, "token 7"), "token")

	var publicErr *PublicError
	require.True(t, errors.As(err, &publicErr))
	assert.Equal(t, "token: token 7: Not Found", publicErr.Message())
	assert.ErrorIs(t, err, NotFound)

	assert.NoError(t, WithPublicMessage(nil, "token"))

	err = NewPublicError("address is not a valid hex address")
	require.True(t, errors.As(err, &publicErr))
	assert.Equal(t, "address is not a valid hex address", publicErr.Message())
	assert.NotErrorIs(t, err, NotFound)
}

func TestErrorKind(t *testing.T) {
	err := errors.Wrapf(InsufficientBalance, "balance of %s", "0x01")
	assert.ErrorIs(t, err, InsufficientBalance)
	assert.NotErrorIs(t, err, Conflict)
	assert.Equal(t, "balance of 0x01: Insufficient Balance", err.Error())
}
