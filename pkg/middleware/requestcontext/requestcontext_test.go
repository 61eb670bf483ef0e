package requestcontext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestId(t *testing.T) {
	app := fiber.New()
	app.Use(New(WithRequestId()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestId(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.ConfigDefault.Header, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-1", resp.Header.Get(requestid.ConfigDefault.Header))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestid.ConfigDefault.Header))
}

func TestOptionError(t *testing.T) {
	app := fiber.New()
	app.Use(New(func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		return ctx, errors.New("boom")
	}))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, GetRequestId(context.Background()))
}
