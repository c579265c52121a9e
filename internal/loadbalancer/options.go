package loadbalancer

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
)

const DefaultPerProviderCapacity = 2

type Option func(*LoadBalancer)

// WithPerProviderCapacity sets how many concurrent requests each healthy
// provider may carry.
func WithPerProviderCapacity(n int) Option {
	return func(lb *LoadBalancer) {
		if n > 0 {
			lb.perProvider = n
		}
	}
}

// WithWorkers sizes the pool that executes provider calls. Values below
// registry capacity times per-provider capacity are raised to it.
func WithWorkers(n int) Option {
	return func(lb *LoadBalancer) {
		if n > 0 {
			lb.workers = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(lb *LoadBalancer) {
		if logger != nil {
			lb.logger = logger
		}
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(lb *LoadBalancer) {
		lb.collector = collector
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(lb *LoadBalancer) {
		if tp != nil {
			lb.tracer = tp.Tracer(tracerName)
		}
	}
}
