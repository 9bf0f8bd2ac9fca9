// Package metrics exposes Prometheus counters for statement parsing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/brokerstatements/internal/core"
)

const namespace = "brokerstatements"

// Outcome labels of parsed statements.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial" // some tables failed
	OutcomeFailed  = "failed"  // no result at all
)

// Metrics holds the collectors of one registry. Each server owns its own
// registry so tests can build servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	statements  *prometheus.CounterVec
	tableErrors *prometheus.CounterVec
	records     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rejected    prometheus.Counter
}

// New registers the parsing collectors and the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements parsed, by format and outcome.",
		}, []string{"format", "outcome"}),
		tableErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_errors_total",
			Help:      "Tables that failed to extract, by format and record kind.",
		}, []string{"format", "table"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records extracted, by format and record kind.",
		}, []string{"format", "table"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time to parse one statement.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_rejected_total",
			Help:      "Parse requests rejected because every parse slot was busy.",
		}),
	}
	reg.MustRegister(
		m.statements, m.tableErrors, m.records, m.duration, m.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records the outcome of one ParseStatement call. format is the
// requested key, used when res is nil.
func (m *Metrics) Observe(format string, res *core.Result, err error, elapsed time.Duration) {
	if res != nil {
		format = res.Format
	}
	if format == "" {
		format = "unknown"
	}
	m.duration.WithLabelValues(format).Observe(elapsed.Seconds())

	switch {
	case res == nil:
		m.statements.WithLabelValues(format, OutcomeFailed).Inc()
		return
	case err != nil:
		m.statements.WithLabelValues(format, OutcomePartial).Inc()
	default:
		m.statements.WithLabelValues(format, OutcomeOK).Inc()
	}

	for _, te := range core.TableErrors(err) {
		m.tableErrors.WithLabelValues(format, te.Table).Inc()
	}
	for _, o := range res.Tables {
		if o.Records > 0 {
			m.records.WithLabelValues(format, o.Table).Add(float64(o.Records))
		}
	}
}

// Rejected counts a request turned away by the parse limiter.
func (m *Metrics) Rejected() {
	m.rejected.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
