package indexer

import (
	"time"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	FilesTotal     *prometheus.CounterVec
	CallsTotal     *prometheus.CounterVec
	ParseDuration  *prometheus.HistogramVec
	GraphTypes     prometheus.Gauge
	GraphEdges     prometheus.Gauge
	CyclesDetected prometheus.Gauge
}

// NewMetrics registers the collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_facts_files_total",
			Help: "Source files handled, by language and outcome.",
		}, []string{"language", "outcome"}),

		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_facts_calls_total",
			Help: "Call records emitted after resolution, by call type.",
		}, []string{"call_type"}),

		ParseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cortex_facts_parse_seconds",
			Help:    "Time spent extracting and resolving one source file.",
			Buckets: prometheus.DefBuckets,
		}, []string{"language"}),

		GraphTypes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_facts_graph_types",
			Help: "Types in the last inheritance snapshot.",
		}),

		GraphEdges: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_facts_graph_edges",
			Help: "Inheritance edges in the last snapshot.",
		}),

		CyclesDetected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cortex_facts_inheritance_cycles",
			Help: "Inheritance cycles in the last snapshot.",
		}),
	}
}

func (m *Metrics) observeFile(language string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(language, string(outcome)).Inc()
	if outcome == OutcomeParsed || outcome == OutcomePartial {
		m.ParseDuration.WithLabelValues(language).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeBatch(results []*facts.ParseResult, stats *Stats) {
	if m == nil {
		return
	}
	for _, r := range results {
		for _, c := range r.Calls {
			m.CallsTotal.WithLabelValues(string(c.CallType)).Inc()
		}
	}
	m.GraphTypes.Set(float64(stats.Types))
	m.GraphEdges.Set(float64(stats.Edges))
	m.CyclesDetected.Set(float64(stats.Cycles))
}
