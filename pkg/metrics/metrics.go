// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultPrefix = "approcure"

var (
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDenials *prometheus.CounterVec

	// Request lifecycle metrics
	RequestTransitions *prometheus.CounterVec

	// Access code metrics
	AccessCodeClaims *prometheus.CounterVec

	// Store metrics
	StoreOperationDuration *prometheus.HistogramVec
)

// Collectors start out unregistered so packages can record into them before
// Init, as tests do.
func init() {
	build(defaultPrefix, nil)
}

// Init rebuilds every collector under prefix and registers it with the
// default registry served on /metrics. Call once at startup.
func Init(prefix string) {
	if prefix == "" {
		prefix = defaultPrefix
	}
	build(prefix, prometheus.DefaultRegisterer)
}

func build(prefix string, reg prometheus.Registerer) {
	f := promauto.With(reg)

	HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthzDenials = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_authz_denials_total",
			Help: "Total number of permission checks that denied the caller",
		},
		[]string{"permission"},
	)

	RequestTransitions = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_request_transitions_total",
			Help: "Purchase request state transitions by target state and outcome",
		},
		[]string{"to", "outcome"},
	)

	AccessCodeClaims = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_access_code_claims_total",
			Help: "Access code redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	StoreOperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
}

// RecordDenial counts a failed permission check.
func RecordDenial(permission string) {
	AuthzDenials.WithLabelValues(permission).Inc()
}

// RecordTransition counts a request transition attempt. outcome is "ok" or an
// error kind name.
func RecordTransition(to, outcome string) {
	RequestTransitions.WithLabelValues(to, outcome).Inc()
}

// RecordClaim counts an access code claim attempt.
func RecordClaim(outcome string) {
	AccessCodeClaims.WithLabelValues(outcome).Inc()
}

// TrackStoreOperation returns a function that records the duration of a store operation
func TrackStoreOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}
