package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dispatcher"

type promMetrics struct {
	registry      *prometheus.Registry
	dispatches    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	responseTime  *prometheus.HistogramVec
	inFlight      prometheus.Collector
	providerState *prometheus.GaugeVec
	dropped       prometheus.Counter
}

func newPromMetrics() *promMetrics {
	m := &promMetrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Completed dispatches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Dispatches rejected before reaching a provider.",
		}, []string{"reason"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_duration_seconds",
			Help:      "Provider response time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		providerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_state",
			Help:      "1 for the current state of each provider, 0 otherwise.",
		}, []string{"provider", "state"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_events_dropped_total",
			Help:      "Metric events dropped because the collector buffer was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.dispatches,
		m.rejections,
		m.responseTime,
		m.providerState,
		m.dropped,
	)

	return m
}

func (m *promMetrics) trackInFlight(value func() float64) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "in_flight",
		Help:      "Dispatches currently executing on a provider.",
	}, value)

	if m.inFlight != nil {
		m.registry.Unregister(m.inFlight)
	}
	m.registry.MustRegister(gauge)
	m.inFlight = gauge
}
