package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all rtspscout metrics
	namespace = "rtspscout"

	// Subsystems
	subsystemDiscovery = "discovery"
	subsystemRTSP      = "rtsp"
	subsystemWorkers   = "workers"
	subsystemAPI       = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Discovery metrics
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	stageDuration   *prometheus.HistogramVec
	hostsDiscovered *prometheus.CounterVec
	openPorts       prometheus.Counter

	// RTSP metrics
	rtspEndpoints   prometheus.Counter
	servicesTotal   *prometheus.CounterVec
	describeResults *prometheus.CounterVec

	// Worker metrics
	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all
// collectors registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{registry: registry}

	pm.initDiscoveryMetrics()
	pm.initRTSPMetrics()
	pm.initWorkerMetrics()
	pm.initAPIMetrics()

	registry.MustRegister(
		pm.runsTotal,
		pm.runDuration,
		pm.stageDuration,
		pm.hostsDiscovered,
		pm.openPorts,
		pm.rtspEndpoints,
		pm.servicesTotal,
		pm.describeResults,
		pm.jobsTotal,
		pm.jobDuration,
		pm.httpRequests,
		pm.httpDuration,
	)

	// Standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initDiscoveryMetrics() {
	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "runs_total",
			Help:      "Total number of discovery runs by status",
		},
		[]string{"status"},
	)

	pm.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "run_duration_seconds",
			Help:      "Duration of discovery runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	pm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)

	pm.hostsDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "hosts_discovered_total",
			Help:      "Total number of host sightings by discovery method",
		},
		[]string{"method"},
	)

	pm.openPorts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "open_ports_total",
			Help:      "Total number of open candidate ports found",
		},
	)
}

func (pm *PrometheusMetrics) initRTSPMetrics() {
	pm.rtspEndpoints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRTSP,
			Name:      "endpoints_total",
			Help:      "Total number of endpoints confirmed to speak RTSP",
		},
	)

	pm.servicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRTSP,
			Name:      "services_total",
			Help:      "Total number of classified services by kind",
		},
		[]string{"kind"},
	)

	pm.describeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRTSP,
			Name:      "describe_results_total",
			Help:      "Total number of DESCRIBE classifications by status",
		},
		[]string{"status"},
	)
}

func (pm *PrometheusMetrics) initWorkerMetrics() {
	pm.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "jobs_total",
			Help:      "Total number of worker jobs by type and status",
		},
		[]string{"job_type", "status"},
	)

	pm.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "job_duration_seconds",
			Help:      "Duration of worker jobs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job_type"},
	)
}

func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Handler returns an HTTP handler exposing the registry.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

func (pm *PrometheusMetrics) RecordRun(status string, duration time.Duration) {
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.runDuration.Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordStage(stage string, duration time.Duration) {
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) AddHostsDiscovered(method string, count int) {
	pm.hostsDiscovered.WithLabelValues(method).Add(float64(count))
}

func (pm *PrometheusMetrics) AddOpenPorts(count int) {
	pm.openPorts.Add(float64(count))
}

func (pm *PrometheusMetrics) AddRTSPEndpoints(count int) {
	pm.rtspEndpoints.Add(float64(count))
}

func (pm *PrometheusMetrics) RecordService(kind string) {
	pm.servicesTotal.WithLabelValues(kind).Inc()
}

func (pm *PrometheusMetrics) RecordDescribe(status string) {
	pm.describeResults.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) RecordJob(jobType, status string, duration time.Duration) {
	pm.jobsTotal.WithLabelValues(jobType, status).Inc()
	pm.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pm.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	globalMetrics *PrometheusMetrics
	globalOnce    sync.Once
)

// GetGlobalMetrics returns the process-wide metrics instance.
func GetGlobalMetrics() *PrometheusMetrics {
	globalOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
