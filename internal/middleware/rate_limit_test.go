package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRateLimitedApp(max int) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User"))
		return c.Next()
	})
	app.Use(RateLimit("grading", max, time.Minute))
	app.Patch("/grade", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimitThrottlesAfterBudget(t *testing.T) {
	app := newRateLimitedApp(2)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPatch, "/grade", nil)
		req.Header.Set("X-User", "1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPatch, "/grade", nil)
	req.Header.Set("X-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.False(t, payload.Success)
	require.Contains(t, payload.Message, "rate limit")
}

func TestRateLimitBudgetsArePerUser(t *testing.T) {
	app := newRateLimitedApp(1)

	first := httptest.NewRequest(http.MethodPatch, "/grade", nil)
	first.Header.Set("X-User", "1")
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	exhausted := httptest.NewRequest(http.MethodPatch, "/grade", nil)
	exhausted.Header.Set("X-User", "1")
	resp, err = app.Test(exhausted)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	other := httptest.NewRequest(http.MethodPatch, "/grade", nil)
	other.Header.Set("X-User", "2")
	resp, err = app.Test(other)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
