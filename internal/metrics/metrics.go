package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	admissions *prometheus.CounterVec
	ingestions *prometheus.CounterVec
	queries    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	passages   prometheus.Histogram
	sessions   prometheus.GaugeFunc
}

func (m *Metrics) Admission(class string, admitted bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if admitted {
		outcome = "admitted"
	}
	m.admissions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) Ingestion(class string, outcome string, passages int) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(class, outcome).Inc()
	if passages > 0 {
		m.passages.Observe(float64(passages))
	}
}

func (m *Metrics) Query(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// New registers the collectors on a private registry. sessions reports the
// live session count when scraped.
func New(sessions func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doclens_admissions_total",
				Help: "Admission decisions by caller class and outcome",
			},
			[]string{"class", "outcome"},
		),
		ingestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doclens_ingestions_total",
				Help: "Document ingestions by caller class and outcome",
			},
			[]string{"class", "outcome"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doclens_queries_total",
				Help: "Answered and failed questions by outcome",
			},
			[]string{"outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "doclens_query_duration_seconds",
				Help:    "Time to answer a question",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"outcome"},
		),
		passages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "doclens_document_passages",
				Help:    "Passages produced per ingested document",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		sessions: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "doclens_sessions",
				Help: "Sessions currently held in memory",
			},
			func() float64 { return float64(sessions()) },
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.admissions,
		m.ingestions,
		m.queries,
		m.latency,
		m.passages,
		m.sessions,
	)

	return m
}
