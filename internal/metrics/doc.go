// Package metrics provides real-time metrics collection for the dispatcher.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Selection counts per provider
//   - Failed provider calls
//   - Response times with percentile calculations (P50, P95, P99)
//   - Rejections by reason (capacity, no provider)
//   - Provider state transitions
//
// The collector runs in a dedicated goroutine. Events are sent with
// non-blocking semantics so the dispatch path never waits on metrics.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventResponseCompleted,
//		Provider: id.String(),
//		Duration: 150 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot("round-robin")
//
// The same events feed Prometheus collectors served by PrometheusHandler.
package metrics
