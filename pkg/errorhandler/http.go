package errorhandler

import (
	"net/http"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

// StatusCode returns the HTTP status the error handler responds with.
func StatusCode(err error) int {
	if e := new(errs.PublicError); errors.As(err, &e) {
		if errors.Is(err, errs.NotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}
	if e := new(fiber.Error); errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// NewHTTPErrorHandler returns the fiber error handler. Public errors are
// returned as is, other errors are logged and hidden behind a generic message.
func NewHTTPErrorHandler() func(ctx *fiber.Ctx, err error) error {
	return func(ctx *fiber.Ctx, err error) error {
		status := StatusCode(err)
		if e := new(errs.PublicError); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(status).JSON(map[string]any{
				"error": e.Message(),
			}))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(status).SendString(e.Error()))
		}

		logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error", err,
			slogx.String("event", "api_unhandled_error"),
			slogx.String("path", ctx.Path()),
		)
		return errors.WithStack(ctx.Status(status).JSON(map[string]any{
			"error": "Internal Server Error",
		}))
	}
}
