package scraper

import (
	"time"

	"github.com/aluiziolira/go-scrape-stickers/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	PagesTotal      *prometheus.CounterVec
	AssetsTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerdl_requests_total",
			Help: "Total HTTP requests issued, by phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stickerdl_request_duration_seconds",
			Help:    "HTTP request latency for pages, search calls and assets.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerdl_pages_total",
			Help: "Pages processed, by kind (listing or product).",
		},
		[]string{"kind"},
	)
	assets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerdl_assets_total",
			Help: "Assets handled, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerdl_errors_total",
			Help: "Crawls aborted, by error type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, assets, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		PagesTotal:      pages,
		AssetsTotal:     assets,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPage counts a processed page.
func (m *Metrics) IncPage(kind string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(kind).Inc()
}

// IncAsset counts a handled asset; outcome is "downloaded" or "skipped".
func (m *Metrics) IncAsset(kind models.AssetKind, outcome string) {
	if m == nil {
		return
	}
	m.AssetsTotal.WithLabelValues(string(kind), outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
