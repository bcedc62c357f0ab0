package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PointsMetrics records service-level measurements for the points engine and
// the stateful services around it.
type PointsMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordCacheLookup(namespace string, hit bool)
	RecordTokenRefresh(success bool)
	RecordRoleTransition(changed bool)
}

// PrometheusMetrics implements PointsMetrics on a prometheus registry.
type PrometheusMetrics struct {
	attempts        *prometheus.CounterVec
	successes       *prometheus.CounterVec
	failures        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	roleTransitions *prometheus.CounterVec
}

var _ PointsMetrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "operation_success_total",
			Help:      "Service operations that completed without error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "operation_failure_total",
			Help:      "Service operations that returned an error.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lbpoints",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by namespace and result.",
		}, []string{"namespace", "result"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "osu_token_refreshes_total",
			Help:      "osu! API token requests by result.",
		}, []string{"result"}),
		roleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lbpoints",
			Name:      "role_transitions_total",
			Help:      "Reconciliations by whether the role changed.",
		}, []string{"changed"}),
	}

	reg.MustRegister(
		m.attempts,
		m.successes,
		m.failures,
		m.duration,
		m.cacheLookups,
		m.tokenRefreshes,
		m.roleTransitions,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(namespace, result).Inc()
}

func (m *PrometheusMetrics) RecordTokenRefresh(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) RecordRoleTransition(changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	m.roleTransitions.WithLabelValues(label).Inc()
}

// NoOpMetrics discards all measurements.
type NoOpMetrics struct{}

var _ PointsMetrics = NoOpMetrics{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordCacheLookup(string, bool)                                         {}
func (NoOpMetrics) RecordTokenRefresh(bool)                                                {}
func (NoOpMetrics) RecordRoleTransition(bool)                                              {}
