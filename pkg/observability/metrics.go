package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/treelang/treelang/pkg/eval"
)

// Metrics holds the Prometheus series for one engine. All methods are
// safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	nodesTotal   *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	evaluations  *prometheus.CounterVec
	evalDuration prometheus.Histogram
}

// NewMetrics creates the metric series on a fresh registry, alongside
// the standard Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treelang",
			Name:      "nodes_total",
			Help:      "Nodes evaluated, by kind.",
		}, []string{"kind"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treelang",
			Name:      "node_errors_total",
			Help:      "Nodes whose evaluation failed, by kind.",
		}, []string{"kind"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treelang",
			Name:      "tool_calls_total",
			Help:      "Tool invocations, by tool and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "treelang",
			Name:      "tool_duration_seconds",
			Help:      "Seconds spent inside each tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treelang",
			Name:      "evaluations_total",
			Help:      "Whole-tree evaluations, by outcome.",
		}, []string{"status"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "treelang",
			Name:      "evaluation_duration_seconds",
			Help:      "Seconds to evaluate a whole tree.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.nodesTotal, m.nodeErrors, m.toolCalls, m.toolDuration,
		m.evaluations, m.evalDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, for callers composing
// their own handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed these metrics.
func (m *Metrics) Hooks() eval.LifecycleHooks {
	return eval.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *eval.NodeEvent) {
			m.nodesTotal.WithLabelValues(e.NodeKind).Inc()
			if e.IsError {
				m.nodeErrors.WithLabelValues(e.NodeKind).Inc()
			}
		},
		OnToolReturn: func(_ context.Context, e *eval.ToolEvent) {
			status := "ok"
			if e.IsError {
				status = "error"
			}
			m.toolCalls.WithLabelValues(e.ToolName, status).Inc()
			m.toolDuration.WithLabelValues(e.ToolName).Observe(e.Elapsed.Seconds())
		},
	}
}

// RecordEvaluation counts one whole-tree evaluation. Callers time the
// run themselves since hooks only see individual nodes.
func (m *Metrics) RecordEvaluation(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.evaluations.WithLabelValues(status).Inc()
	m.evalDuration.Observe(elapsed.Seconds())
}
