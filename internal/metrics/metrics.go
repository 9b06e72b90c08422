package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks login attempts by outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authd_login_attempts_total",
			Help: "Total number of login attempts (by outcome).",
		},
		[]string{"outcome"}, // succeeded | invalid_credentials | locked | error
	)

	// Measures duration of login handling, bcrypt included.
	LoginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authd_login_duration_seconds",
			Help:    "Duration of login handling in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"outcome"},
	)

	// Tracks token introspection requests.
	IntrospectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authd_introspections_total",
			Help: "Total number of token introspection requests.",
		},
		[]string{"result"}, // ok | invalid
	)

	// Tracks NATS audit messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for the signing-key cache.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authd_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Counts accounts entering lockout. The lockout itself lives in redis
	// with a TTL, so "currently locked" is not observable from here.
	AccountLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authd_account_lockouts_total",
			Help: "Total number of times an account entered lockout.",
		},
	)
)

// ObserveDuration records the time taken since start and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncLoginAttempt(outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

func IncIntrospection(result string) {
	IntrospectionsTotal.WithLabelValues(result).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncLockout() {
	AccountLockoutsTotal.Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
