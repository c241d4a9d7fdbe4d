package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAdjustment(t *testing.T) {
	m := New()

	m.ObserveAdjustment("out", "success")
	m.ObserveAdjustment("out", "success")
	m.ObserveAdjustment("out", "insufficient_quantity")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.adjustments.WithLabelValues("out", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adjustments.WithLabelValues("out", "insufficient_quantity")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.adjustments.WithLabelValues("in", "success")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/items/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `inventory_http_request_duration_seconds_count{method="GET",route="/items/:id",status="204"} 3`)
}
