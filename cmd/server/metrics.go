package main

import (
	"context"
	"net/http"

	"github.com/lychee-technology/kindgen/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// serverMetrics turns telemetry emissions into Prometheus series.
type serverMetrics struct {
	registry         *prometheus.Registry
	compatibility    *prometheus.CounterVec
	generations      *prometheus.CounterVec
	recordOperations *prometheus.HistogramVec
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{registry: prometheus.NewRegistry()}

	m.compatibility = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: internal.MetricCompatibilityChecks,
			Help: "Kind schema compatibility checks by result",
		},
		[]string{"result"},
	)
	m.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: internal.MetricGenerations,
			Help: "Generated artifacts by type and result",
		},
		[]string{"artifact", "result"},
	)
	m.recordOperations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    internal.MetricRecordOperations,
			Help:    "Latency of record operations in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"operation", "result"},
	)

	m.registry.MustRegister(
		m.compatibility,
		m.generations,
		m.recordOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// emit matches internal.TelemetryEmitter.
func (m *serverMetrics) emit(_ context.Context, name string, labels map[string]string, value any) {
	switch name {
	case internal.MetricCompatibilityChecks:
		m.compatibility.With(prometheus.Labels(labels)).Inc()
	case internal.MetricGenerations:
		m.generations.With(prometheus.Labels(labels)).Inc()
	case internal.MetricRecordOperations:
		ms, ok := value.(int64)
		if !ok {
			zap.S().Warnw("unexpected telemetry value", "metric", name, "value", value)
			return
		}
		m.recordOperations.With(prometheus.Labels(labels)).Observe(float64(ms))
	default:
		zap.S().Debugw("dropping unknown metric", "metric", name)
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
