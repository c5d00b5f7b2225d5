package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestCoreMetricsRegisteredAtConstruction(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.Metrics.RecordEngineStatus("arm", 2)
	registry.Metrics.RecordTick("arm", 800*time.Microsecond)
	registry.Metrics.RecordEvaluation("arm", "dynamics.torque")
	registry.Metrics.RecordLogMessage("arm", "WARNING", false)
	registry.Metrics.RecordLogMessage("arm", "INFO", true)
	registry.Metrics.RecordNATSStatus(true)

	names := gatheredNames(t, registry)
	for _, want := range []string{
		"dynamicgraph_engine_status",
		"dynamicgraph_engine_ticks_total",
		"dynamicgraph_engine_tick_duration_seconds",
		"dynamicgraph_signals_evaluations_total",
		"dynamicgraph_logger_messages_total",
		"dynamicgraph_logger_suppressed_total",
		"dynamicgraph_nats_connected",
	} {
		assert.True(t, names[want], "core metric %s should be gatherable", want)
	}

	// Go runtime collectors come along for free.
	assert.True(t, names["go_goroutines"], "Go collector should be registered")
}

func TestRegisterCounterForOwner(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dynamicgraph",
		Subsystem: "tracer",
		Name:      "samples_written_total",
		Help:      "Samples written by the tracer entity",
	})

	require.NoError(t, registry.RegisterCounter("tracer1", "samples_written_total", counter))
	counter.Inc()

	names := gatheredNames(t, registry)
	assert.True(t, names["dynamicgraph_tracer_samples_written_total"])
}

func TestRegisterPreventsDuplicateKey(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_depth", Help: "depth",
	})
	second := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_depth_other", Help: "depth",
	})

	require.NoError(t, registry.RegisterGauge("svc", "queue_depth", first))

	err := registry.RegisterGauge("svc", "queue_depth", second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// The same metric name under a different owner needs a distinct
	// collector name, but the key itself is free.
	third := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_depth_svc2", Help: "depth",
	})
	require.NoError(t, registry.RegisterGauge("svc2", "queue_depth", third))
}

func TestRegisterDetectsPrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_total", Help: "shared",
	})
	clash := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_total", Help: "shared",
	})

	require.NoError(t, registry.RegisterCounter("a", "shared_total", first))

	err := registry.RegisterCounter("b", "shared_total", clash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "step_seconds", Help: "steps", Buckets: prometheus.DefBuckets,
	})
	require.NoError(t, registry.RegisterHistogram("stepper", "step_seconds", histogram))

	assert.True(t, registry.Unregister("stepper", "step_seconds"))
	assert.False(t, registry.Unregister("stepper", "step_seconds"),
		"second unregister of the same key should report false")
	assert.False(t, registry.Unregister("ghost", "never_was"))

	// The name is reusable after unregistration.
	replacement := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "step_seconds", Help: "steps", Buckets: prometheus.DefBuckets,
	})
	require.NoError(t, registry.RegisterHistogram("stepper", "step_seconds", replacement))
}

func TestRegisterVecVariants(t *testing.T) {
	registry := NewMetricsRegistry()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_total", Help: "events",
	}, []string{"kind"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "levels", Help: "levels",
	}, []string{"joint"})
	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "latency_seconds", Help: "latency", Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	require.NoError(t, registry.RegisterCounterVec("owner", "events_total", counterVec))
	require.NoError(t, registry.RegisterGaugeVec("owner", "levels", gaugeVec))
	require.NoError(t, registry.RegisterHistogramVec("owner", "latency_seconds", histogramVec))

	counterVec.WithLabelValues("plug").Inc()
	gaugeVec.WithLabelValues("elbow").Set(1.2)
	histogramVec.WithLabelValues("remote").Observe(0.05)

	names := gatheredNames(t, registry)
	assert.True(t, names["events_total"])
	assert.True(t, names["levels"])
	assert.True(t, names["latency_seconds"])
}

// tracerOwner exercises the Registrar interface the way an entity with
// its own metrics does.
type tracerOwner struct {
	name    string
	written prometheus.Counter
	backlog prometheus.Gauge
}

func (m *tracerOwner) RegisterMetrics(registrar Registrar) error {
	m.written = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dynamicgraph",
		Subsystem: "tracer",
		Name:      "rows_total",
		Help:      "Trace rows written",
	})
	if err := registrar.RegisterCounter(m.name, "rows_total", m.written); err != nil {
		return err
	}
	m.backlog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dynamicgraph",
		Subsystem: "tracer",
		Name:      "backlog",
		Help:      "Buffered rows not yet flushed",
	})
	return registrar.RegisterGauge(m.name, "backlog", m.backlog)
}

func TestOwnerRegistrationWorkflow(t *testing.T) {
	registry := NewMetricsRegistry()
	owner := &tracerOwner{name: "tracer-main"}

	require.NoError(t, owner.RegisterMetrics(registry))
	owner.written.Add(3)
	owner.backlog.Set(7)

	names := gatheredNames(t, registry)
	assert.True(t, names["dynamicgraph_tracer_rows_total"])
	assert.True(t, names["dynamicgraph_tracer_backlog"])

	assert.True(t, registry.Unregister("tracer-main", "rows_total"))
	assert.True(t, registry.Unregister("tracer-main", "backlog"))
}

func TestConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_%d_total", n),
				Help: "concurrent registration",
			})
			errs[n] = registry.RegisterCounter(fmt.Sprintf("owner%d", n), "concurrent_total", counter)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "registration %d", i)
	}
}
