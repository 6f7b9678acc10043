package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	expiredSessions prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method and status class.",
		}, []string{"method", "class"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskflow",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "client",
			Name:      "refresh_attempts_total",
			Help:      "Token refreshes triggered by a 401, by outcome.",
		}, []string{"outcome"}),
		expiredSessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "client",
			Name:      "sessions_expired_total",
			Help:      "Sessions ended because a 401 could not be recovered.",
		}),
	}
}

// statusClass maps 404 to "4xx"; transport failures have status 0.
func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func (m *metrics) observeRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *metrics) observeRefresh(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *metrics) observeExpired() {
	if m == nil {
		return
	}
	m.expiredSessions.Inc()
}
