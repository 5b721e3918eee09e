package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	OutcomeExecuted  = "executed"
	OutcomeProposed  = "proposed"
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeDenied    = "denied"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	reg        *prometheus.Registry
	operations *prometheus.CounterVec
	modelCalls *prometheus.CounterVec
	modelTime  *prometheus.HistogramVec
	sessions   prometheus.Gauge
	reports    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "operations_total",
			Help:      "Inventory operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "model_calls_total",
			Help:      "Model round trips by backend and outcome.",
		}, []string{"backend", "outcome"}),
		modelTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stockbot",
			Name:      "model_call_seconds",
			Help:      "Model round trip latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"backend"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stockbot",
			Name:      "active_sessions",
			Help:      "Logged-in chat sessions held in memory.",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "reports_generated_total",
			Help:      "Rendered inventory reports.",
		}),
	}
	m.reg.MustRegister(m.operations, m.modelCalls, m.modelTime, m.sessions, m.reports)
	m.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// ObserveOperation counts one operation outcome. Nil receivers are no-ops.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveModelCall implements llm.Recorder.
func (m *Metrics) ObserveModelCall(backend, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(backend, outcome).Inc()
	m.modelTime.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) ReportGenerated() {
	if m == nil {
		return
	}
	m.reports.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
