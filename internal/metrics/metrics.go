package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/taskhub-api/internal/authz"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by category, action and outcome.",
		},
		[]string{"category", "action", "outcome"},
	)

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit records that could not be persisted.",
	})

	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notifications that were not delivered.",
		},
		[]string{"reason"},
	)
)

// Register adds every collector to reg. Call it once per process.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		AuthzDecisions,
		AuditWriteFailures,
		NotificationsDropped,
	)
}

// ObserveDecision records an authorization decision. It matches the
// authz.WithObserver callback signature.
func ObserveDecision(req authz.Request, d authz.Decision) {
	outcome := "allow"
	if !d.Allowed {
		outcome = string(d.Reason())
	}
	AuthzDecisions.WithLabelValues(string(req.Category), string(req.Action), outcome).Inc()
}

// Middleware measures request count, latency and concurrency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpInFlight.Dec()
	}
}
