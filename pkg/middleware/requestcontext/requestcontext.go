// Package requestcontext prepares the user context of fiber requests: request
// scoped values and logger attributes.
package requestcontext

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

// Option adds values to the request context. A returned error is passed to
// the app error handler.
type Option func(ctx context.Context, c *fiber.Ctx) (context.Context, error)

func New(opts ...Option) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var err error
		ctx := c.UserContext()
		for _, opt := range opts {
			ctx, err = opt(ctx, c)
			if err != nil {
				return errors.Wrap(err, "failed to extract request context")
			}
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
