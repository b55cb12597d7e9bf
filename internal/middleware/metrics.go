package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors of one application instance.
// Each instance owns its registry so several servers can coexist in one process (tests).
type Metrics struct {
	Registry *prometheus.Registry
	HTTP     *fiberprometheus.FiberPrometheus

	RedisErrors     *prometheus.CounterVec
	Signups         prometheus.Counter
	LoginFailures   prometheus.Counter
	MessagesCreated prometheus.Counter
	LikeToggles     *prometheus.CounterVec
	FollowChanges   *prometheus.CounterVec
}

// InitMetrics creates the registry, the HTTP request collectors and the domain counters.
func InitMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTP:     fiberprometheus.NewWithRegistry(reg, serviceName, "warbler", "http", nil),
		RedisErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warbler_redis_errors_total",
			Help: "Total number of Redis errors by command",
		}, []string{"command"}),
		Signups: factory.NewCounter(prometheus.CounterOpts{
			Name: "warbler_signups_total",
			Help: "Total number of successful signups",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "warbler_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		MessagesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "warbler_messages_created_total",
			Help: "Total number of messages posted",
		}),
		LikeToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warbler_like_toggles_total",
			Help: "Total number of like/unlike actions",
		}, []string{"action"}),
		FollowChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warbler_follow_changes_total",
			Help: "Total number of follow/unfollow actions",
		}, []string{"action"}),
	}
}

// MetricsMiddleware records request count and latency for every route.
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return m.HTTP.Middleware
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// IncSignup and the helpers below are nil-safe so callers need not check.
func (m *Metrics) IncSignup() {
	if m != nil {
		m.Signups.Inc()
	}
}

func (m *Metrics) IncLoginFailure() {
	if m != nil {
		m.LoginFailures.Inc()
	}
}

func (m *Metrics) IncMessageCreated() {
	if m != nil {
		m.MessagesCreated.Inc()
	}
}

func (m *Metrics) IncLikeToggle(liked bool) {
	if m == nil {
		return
	}
	action := "unlike"
	if liked {
		action = "like"
	}
	m.LikeToggles.WithLabelValues(action).Inc()
}

func (m *Metrics) IncFollowChange(action string) {
	if m != nil {
		m.FollowChanges.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncRedisError(command string) {
	if m != nil {
		m.RedisErrors.WithLabelValues(command).Inc()
	}
}
