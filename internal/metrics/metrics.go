// Package metrics provides Prometheus-based metrics collection for fwprobe.
// Collectors cover probe outcomes, probe latency, run lifecycle and target
// resolution failures. The package keeps a process-global instance so the
// engine can record without plumbing a registry through every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all fwprobe metrics
	namespace = "fwprobe"

	// Subsystems
	subsystemProbe   = "probe"
	subsystemRun     = "run"
	subsystemResolve = "resolve"
)

// PrometheusMetrics holds all Prometheus metric collectors.
type PrometheusMetrics struct {
	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	probeErrors   *prometheus.CounterVec
	activeProbes  prometheus.Gauge

	// Run metrics
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	workUnits   prometheus.Histogram

	// Resolution metrics
	resolutionErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{registry: registry}

	pm.initProbeMetrics()
	pm.initRunMetrics()
	pm.initResolveMetrics()
	pm.registerMetrics()

	// Standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initProbeMetrics initializes probe-related metrics.
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of probes performed by protocol and terminal state",
		},
		[]string{"protocol", "state"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of individual probe attempts in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 3.0, 5.0, 10.0},
		},
		[]string{"protocol"},
	)

	pm.probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "errors_total",
			Help:      "Total number of probe attempts ending in an OS-level error",
		},
		[]string{"protocol", "error_type"},
	)

	pm.activeProbes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "active",
			Help:      "Number of probes currently in flight",
		},
	)
}

// initRunMetrics initializes run-level metrics.
func (pm *PrometheusMetrics) initRunMetrics() {
	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "total",
			Help:      "Total number of probe runs by status",
		},
		[]string{"status"},
	)

	pm.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "duration_seconds",
			Help:      "Duration of complete probe runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
	)

	pm.workUnits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "work_units",
			Help:      "Number of work units per run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
}

// initResolveMetrics initializes resolution metrics.
func (pm *PrometheusMetrics) initResolveMetrics() {
	pm.resolutionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemResolve,
			Name:      "errors_total",
			Help:      "Total number of target resolution failures",
		},
		[]string{"target"},
	)
}

// registerMetrics registers all collectors with the registry.
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.probesTotal,
		pm.probeDuration,
		pm.probeErrors,
		pm.activeProbes,
		pm.runsTotal,
		pm.runDuration,
		pm.workUnits,
		pm.resolutionErrors,
	)
}

// GetRegistry returns the underlying Prometheus registry.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Probe metrics methods

// IncrementProbesTotal increments the probe counter for a protocol/state pair.
func (pm *PrometheusMetrics) IncrementProbesTotal(protocol, state string) {
	pm.probesTotal.WithLabelValues(protocol, state).Inc()
}

// RecordProbeDuration records the duration of one probe attempt.
func (pm *PrometheusMetrics) RecordProbeDuration(protocol string, duration time.Duration) {
	pm.probeDuration.WithLabelValues(protocol).Observe(duration.Seconds())
}

// IncrementProbeErrors increments the probe error counter.
func (pm *PrometheusMetrics) IncrementProbeErrors(protocol, errorType string) {
	pm.probeErrors.WithLabelValues(protocol, errorType).Inc()
}

// SetActiveProbes sets the number of probes currently in flight.
func (pm *PrometheusMetrics) SetActiveProbes(count int) {
	pm.activeProbes.Set(float64(count))
}

// Run metrics methods

// IncrementRunsTotal increments the run counter.
func (pm *PrometheusMetrics) IncrementRunsTotal(status string) {
	pm.runsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration records the duration of a complete run.
func (pm *PrometheusMetrics) RecordRunDuration(duration time.Duration) {
	pm.runDuration.Observe(duration.Seconds())
}

// RecordWorkUnits records the work unit count of a run.
func (pm *PrometheusMetrics) RecordWorkUnits(count int) {
	pm.workUnits.Observe(float64(count))
}

// Resolution metrics methods

// IncrementResolutionErrors increments the resolution failure counter.
func (pm *PrometheusMetrics) IncrementResolutionErrors(target string) {
	pm.resolutionErrors.WithLabelValues(target).Inc()
}

// Global metrics instance
var globalMetrics *PrometheusMetrics

// GetGlobalMetrics returns the global Prometheus metrics instance.
func GetGlobalMetrics() *PrometheusMetrics {
	if globalMetrics == nil {
		globalMetrics = NewPrometheusMetrics()
	}
	return globalMetrics
}

// SetGlobalMetrics replaces the global instance; used by tests.
func SetGlobalMetrics(pm *PrometheusMetrics) {
	globalMetrics = pm
}

// Convenience functions on the global instance

// RecordProbe records the outcome and duration of one probe attempt.
func RecordProbe(protocol, state string, duration time.Duration) {
	m := GetGlobalMetrics()
	m.IncrementProbesTotal(protocol, state)
	m.RecordProbeDuration(protocol, duration)
}

// RecordProbeError records an OS-level probe failure.
func RecordProbeError(protocol, errorType string) {
	GetGlobalMetrics().IncrementProbeErrors(protocol, errorType)
}

// RecordRun records the completion of a run.
func RecordRun(status string, units int, duration time.Duration) {
	m := GetGlobalMetrics()
	m.IncrementRunsTotal(status)
	m.RecordWorkUnits(units)
	m.RecordRunDuration(duration)
}

// RecordResolutionError records a target resolution failure.
func RecordResolutionError(target string) {
	GetGlobalMetrics().IncrementResolutionErrors(target)
}
