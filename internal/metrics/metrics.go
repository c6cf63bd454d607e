package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the screening pipeline.
type Metrics struct {
	CyclesTotal      *prometheus.CounterVec // labels: result=ok|error
	CycleDuration    prometheus.Histogram
	QuotesFetched    prometheus.Gauge
	QuotesFiltered   prometheus.Gauge
	FetchErrors      *prometheus.CounterVec // labels: provider
	AlertsTotal      *prometheus.CounterVec // labels: kind, result
	TrainingAccuracy *prometheus.GaugeVec   // labels: symbol
	PortfolioValue   prometheus.Gauge
	WSClients        prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec // labels: method, route, status
	HTTPDuration     *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New registers and returns all metrics on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayscreener_cycles_total",
			Help: "Pipeline cycles by result",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayscreener_cycle_duration_seconds",
			Help:    "Wall time of one pipeline cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		QuotesFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dayscreener_quotes_fetched",
			Help: "Quotes built in the latest cycle",
		}),
		QuotesFiltered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dayscreener_quotes_filtered",
			Help: "Quotes passing the criteria in the latest cycle",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayscreener_fetch_errors_total",
			Help: "Market data fetches that failed",
		}, []string{"provider"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayscreener_alerts_total",
			Help: "Alert deliveries by kind and result",
		}, []string{"kind", "result"}),
		TrainingAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dayscreener_classifier_accuracy",
			Help: "Holdout accuracy of the latest classifier run",
		}, []string{"symbol"}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dayscreener_portfolio_value",
			Help: "Total portfolio value after the latest refresh",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dayscreener_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayscreener_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayscreener_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.QuotesFetched,
		m.QuotesFiltered,
		m.FetchErrors,
		m.AlertsTotal,
		m.TrainingAccuracy,
		m.PortfolioValue,
		m.WSClients,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
