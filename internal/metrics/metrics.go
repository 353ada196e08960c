// Package metrics contains the prometheus collectors shared by the wsdeploy
// polling engine, the provider bridges and the permission probes.
//
// Collectors are registered on a private [Registry] rather than the global
// default registry so that the CLI can export exactly what wsdeploy recorded
// with [WriteTextfile].
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every wsdeploy collector.
var Registry = prometheus.NewRegistry()

var (
	// Polling metrics
	pollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsdeploy",
			Subsystem: "poll",
			Name:      "attempts_total",
			Help:      "Total number of condition checks by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	pollResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsdeploy",
			Subsystem: "poll",
			Name:      "results_total",
			Help:      "Total number of finished polls by flow and result",
		},
		[]string{"flow", "result"},
	)

	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsdeploy",
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Wall time from poll start to success or timeout",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 500ms to ~64s
		},
		[]string{"flow"},
	)

	// Provider bridge metrics
	bridgeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsdeploy",
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Total number of provider bridge calls by provider, operation and result",
		},
		[]string{"provider", "operation", "result"},
	)

	bridgeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsdeploy",
			Subsystem: "bridge",
			Name:      "latency_seconds",
			Help:      "Latency of provider bridge calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "operation"},
	)

	// Permission probe metrics
	permissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsdeploy",
			Subsystem: "auth",
			Name:      "permission_checks_total",
			Help:      "Total number of permission probes by provider and result (pass, fail, warning)",
		},
		[]string{"provider", "result"},
	)
)

func init() {
	Registry.MustRegister(
		pollAttemptsTotal,
		pollResultsTotal,
		pollDuration,
		bridgeCallsTotal,
		bridgeLatency,
		permissionChecksTotal,
	)
}

// RecordPollAttempt records one condition check. Outcome is "true", "false" or "error".
func RecordPollAttempt(flow, outcome string) {
	pollAttemptsTotal.WithLabelValues(flow, outcome).Inc()
}

// RecordPollResult records a finished poll. Result is "success" or "timeout".
func RecordPollResult(flow, result string, seconds float64) {
	pollResultsTotal.WithLabelValues(flow, result).Inc()
	pollDuration.WithLabelValues(flow).Observe(seconds)
}

// RecordBridgeCall records a call into external tooling.
func RecordBridgeCall(provider, operation string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	bridgeCallsTotal.WithLabelValues(provider, operation, result).Inc()
	bridgeLatency.WithLabelValues(provider, operation).Observe(seconds)
}

// RecordPermissionCheck records the outcome of a permission probe.
func RecordPermissionCheck(provider string, passed, warning bool) {
	result := "fail"
	switch {
	case warning:
		result = "warning"
	case passed:
		result = "pass"
	}
	permissionChecksTotal.WithLabelValues(provider, result).Inc()
}

// WriteTextfile writes the registry in the prometheus text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
