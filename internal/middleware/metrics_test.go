package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_IndependentRegistries(t *testing.T) {
	// Two instances in one process must not collide on registration.
	a := InitMetrics("warbler-a")
	b := InitMetrics("warbler-b")

	a.IncSignup()
	a.IncSignup()
	b.IncSignup()

	assert.Equal(t, float64(2), testutil.ToFloat64(a.Signups))
	assert.Equal(t, float64(1), testutil.ToFloat64(b.Signups))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncSignup()
		m.IncLoginFailure()
		m.IncMessageCreated()
		m.IncLikeToggle(true)
		m.IncFollowChange("follow")
		m.IncRedisError("get")
	})
}

func TestMetrics_HandlerExposesDomainCounters(t *testing.T) {
	m := InitMetrics("warbler")
	m.IncLikeToggle(true)
	m.IncLikeToggle(false)
	m.IncMessageCreated()

	app := fiber.New()
	app.Use(MetricsMiddleware(m))
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `warbler_like_toggles_total{action="like"} 1`)
	assert.Contains(t, string(body), `warbler_like_toggles_total{action="unlike"} 1`)
	assert.Contains(t, string(body), "warbler_messages_created_total 1")
}
