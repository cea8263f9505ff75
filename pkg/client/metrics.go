package client

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// WithMetrics records request counts and latencies in reg. Registering a
// second client against the same registry reuses the existing collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		labels := []string{"method", "resource", "status"}

		requests := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method, resource and status class.",
		}, labels)
		duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, labels)

		c.metrics = &metrics{
			requests: register(reg, requests),
			duration: register(reg, duration),
		}
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, col C) C {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		log.Warnw("metrics registration failed", "err", err)
	}
	return col
}

func (m *metrics) observe(r *request, status int, err error, took time.Duration) {
	if m == nil {
		return
	}
	class := statusClass(status, err)
	m.requests.WithLabelValues(r.method, r.resource, class).Inc()
	m.duration.WithLabelValues(r.method, r.resource, class).Observe(took.Seconds())
}

func statusClass(status int, err error) string {
	if status == 0 {
		if err != nil {
			return Normalize(err).Kind.String()
		}
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
