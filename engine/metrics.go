package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nim65s/dynamic-graph/metric"
)

// engineMetrics holds the engine-owned collectors that complement the
// platform core set: the submit queue and its outcomes.
type engineMetrics struct {
	queueDepth  prometheus.Gauge
	submissions *prometheus.CounterVec // By status (ok/error/rejected/abandoned)
}

// newEngineMetrics creates and registers the engine metrics with the
// provided registry.
func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &engineMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynamicgraph",
			Subsystem: "engine",
			Name:      "submit_queue_depth",
			Help:      "Operations waiting in the submit queue",
		}),

		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dynamicgraph",
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Operations submitted to the evaluation goroutine",
		}, []string{"status"}), // status: ok, error, rejected, abandoned
	}

	if err := registry.RegisterGauge("engine", "submit_queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "submissions", m.submissions); err != nil {
		return nil, err
	}

	return m, nil
}

// recordQueueDepth records how many operations are waiting.
func (m *engineMetrics) recordQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// recordSubmission records one submitted operation's outcome.
func (m *engineMetrics) recordSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}
