package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline step names used as the "step" label.
const (
	StepValidate = "validate"
	StepPin      = "pin"
	StepInsights = "insights"
	StepChain    = "chain"
	StepStore    = "store"
	StepList     = "list"
)

type Metrics struct {
	registry *prometheus.Registry

	newsCreated  prometheus.Counter
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New builds a registry holding the service metrics plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		newsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "news_created_total",
			Help: "News items stored after a successful pipeline run.",
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "news_pipeline_step_seconds",
			Help:    "Duration of each news pipeline step in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "news_pipeline_failures_total",
			Help: "Failed news pipeline steps.",
		}, []string{"step"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.newsCreated,
		m.stepDuration,
		m.stepFailures,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) NewsCreated() {
	m.newsCreated.Inc()
}

// ObserveStep records how long a pipeline step took and whether it failed.
func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	if err != nil {
		m.stepFailures.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
