package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

// Exporter holds the exporter's own operational metrics.
// They live in a dedicated registry so the balance exposition stays untouched.
type Exporter struct {
	registry *prometheus.Registry

	ScrapesTotal     *prometheus.CounterVec
	ScrapeDuration   prometheus.Histogram
	UpstreamRequests *prometheus.CounterVec
}

// NewExporter creates and registers the self-metrics.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		registry: reg,
		ScrapesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_exporter_scrapes_total",
			Help: "Scrapes of the balance endpoint by outcome",
		}, []string{"outcome"}),
		ScrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "binance_exporter_scrape_duration_seconds",
			Help:    "Time spent answering a balance scrape",
			Buckets: prometheus.DefBuckets,
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binance_exporter_upstream_requests_total",
			Help: "Balance queries sent to the exchange by query and outcome",
		}, []string{"query", "outcome"}),
	}
	reg.MustRegister(e.ScrapesTotal, e.ScrapeDuration, e.UpstreamRequests)
	return e
}

// ObserveUpstream records the outcome of one wallet query.
func (e *Exporter) ObserveUpstream(query string, err error) {
	e.UpstreamRequests.WithLabelValues(query, domain.ErrorKind(err)).Inc()
}

// ObserveScrape records the outcome and duration of one scrape.
func (e *Exporter) ObserveScrape(err error, elapsed time.Duration) {
	e.ScrapesTotal.WithLabelValues(domain.ErrorKind(err)).Inc()
	e.ScrapeDuration.Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler exposing the self-metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
