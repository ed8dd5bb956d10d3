package observability

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	testCases := []struct {
		status   int
		expected string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{304, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
		{100, "unknown"},
		{0, "unknown"},
		{600, "5xx"}, // >= 500 returns 5xx
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, statusClass(tc.status))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	t.Run("returns path unchanged for short paths", func(t *testing.T) {
		assert.Equal(t, "/manifest", normalizePath("/manifest"))
	})

	t.Run("returns long_path for paths over 50 chars", func(t *testing.T) {
		longPath := "/manifest/very/long/path/that/exceeds/fifty/characters/limit"
		assert.Equal(t, "long_path", normalizePath(longPath))
	})
}

func TestNewMetrics_PrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration
	m1 := NewMetrics()
	m2 := NewMetrics()

	require.NotNil(t, m1.Registry())
	assert.NotSame(t, m1.Registry(), m2.Registry())
}

func TestMetrics_RecordPass(t *testing.T) {
	m := NewMetrics()

	m.RecordPass("success", 4, 512, 3*time.Millisecond)
	m.RecordPass("success", 6, 900, 2*time.Millisecond)
	m.RecordPass("error", 0, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("error")))

	// failed passes leave the last manifest gauges alone
	assert.Equal(t, 6.0, testutil.ToFloat64(m.manifestFiles))
	assert.Equal(t, 900.0, testutil.ToFloat64(m.manifestBytes))
}

func TestMetrics_RecordWrite(t *testing.T) {
	m := NewMetrics()

	m.RecordWrite("local", time.Millisecond, nil)
	m.RecordWrite("s3", 10*time.Millisecond, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.writesTotal.WithLabelValues("local", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writesTotal.WithLabelValues("s3", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.writesTotal.WithLabelValues("s3", "success")))
}

func TestMetrics_SetTrackedModuleAssets(t *testing.T) {
	m := NewMetrics()
	m.SetTrackedModuleAssets(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.trackedModuleAssets))
}

func TestMetrics_FiberIntegration(t *testing.T) {
	m := NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(m.MetricsMiddleware())
	app.Get("/manifest", func(c *fiber.Ctx) error {
		return c.SendString("{}")
	})
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/manifest", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/manifest", "2xx")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "assetmanifest_http_requests_total")
}
