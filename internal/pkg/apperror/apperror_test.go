package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	wrapped := fmt.Errorf("lookup: %w", WrapUpstream("gateway down", cause))

	assert.Equal(t, Upstream, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, Upstream))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, NewValidation("x", "x").HTTPStatus())
	assert.Equal(t, fiber.StatusBadGateway, WrapUpstream("x", nil).HTTPStatus())
	assert.Equal(t, fiber.StatusInternalServerError, NewConfig("x").HTTPStatus())
	assert.Equal(t, fiber.StatusInternalServerError, WrapInternal("x", "x", nil).HTTPStatus())
	assert.Equal(t, fiber.StatusUnauthorized, NewValidation("x", "x").WithStatus(fiber.StatusUnauthorized).HTTPStatus())
}

func TestFiberErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: FiberErrorHandler})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return NewValidation("missing_amount", "amount is required")
	})
	app.Get("/upstream", func(c *fiber.Ctx) error {
		return fmt.Errorf("wrapped: %w", WrapUpstream("gateway down", errors.New("eof")))
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrMethodNotAllowed
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/validation", fiber.StatusBadRequest, "missing_amount"},
		{"/upstream", fiber.StatusBadGateway, "upstream_error"},
		{"/plain", fiber.StatusInternalServerError, "internal_error"},
		{"/fiber", fiber.StatusMethodNotAllowed, "http_error"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, tt.code, body["error"], tt.path)
	}
}
