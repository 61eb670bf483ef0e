package errorhandler

import (
	"net/http"
	"testing"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"public", errs.NewPublicError("bad address"), http.StatusBadRequest},
		{"public not found", errs.WithPublicMessage(errs.NotFound, "token"), http.StatusNotFound},
		{"wrapped public", errors.Wrap(errs.WithPublicMessage(errs.NotFound, "wallet"), "handler"), http.StatusNotFound},
		{"fiber", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"internal", errors.Wrap(errs.NotFound, "not public"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusCode(tc.err))
		})
	}
}
