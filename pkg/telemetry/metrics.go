// Package telemetry exposes form submissions, renders and HTTP requests as
// Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "forms").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets, in seconds.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors and serves them from Handler.
	// Default: a fresh registry.
	Registry *prometheus.Registry
}

// Option configures the metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "forms",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics records form activity. It satisfies form.Observer.
type Metrics struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	submitDuration  *prometheus.HistogramVec
	renders         *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors and returns the metrics.
func New(options ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range options {
		if opt != nil {
			opt(&config)
		}
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)
	return &Metrics{
		registry: config.Registry,

		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submissions_total",
			Help:        "Form submissions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"form", "outcome"}),

		submitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submission_duration_seconds",
			Help:        "Time spent processing a submission",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"form"}),

		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Rendered forms",
			ConstLabels: config.ConstLabels,
		}, []string{"form"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Time spent rendering a form",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"form"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "HTTP requests by method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),
	}
}

// Submitted records a processed submission.
func (m *Metrics) Submitted(alias, outcome string, elapsed time.Duration) {
	m.submissions.WithLabelValues(alias, outcome).Inc()
	m.submitDuration.WithLabelValues(alias).Observe(elapsed.Seconds())
}

// Rendered records a rendered form.
func (m *Metrics) Rendered(alias string, elapsed time.Duration) {
	m.renders.WithLabelValues(alias).Inc()
	m.renderDuration.WithLabelValues(alias).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests and their duration.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
