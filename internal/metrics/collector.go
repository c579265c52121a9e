package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventDispatchRejected  EventType = "dispatch_rejected"
	EventProviderSelected  EventType = "provider_selected"
	EventResponseCompleted EventType = "response_completed"
	EventStateChanged      EventType = "state_changed"
)

const (
	ReasonCapacity   = "capacity"
	ReasonNoProvider = "no_provider"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Provider  string
	Duration  time.Duration
	Failed    bool
	Reason    string
	FromState string
	ToState   string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	prom    *promMetrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		prom:    newPromMetrics(),
		logger:  logger,
	}
}

// Emit queues the event without blocking. Events are dropped when the
// buffer is full so that the dispatch path never waits on metrics.
func (c *Collector) Emit(event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.prom.dropped.Inc()
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run processes events until ctx is cancelled, then drains what is left.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventDispatchRejected:
		c.metrics.RecordRejection(event.Reason)
		c.prom.rejections.WithLabelValues(event.Reason).Inc()

	case EventProviderSelected:
		c.metrics.RecordSelection(event.Provider)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Provider, event.Duration, event.Failed)
		c.prom.dispatches.WithLabelValues(event.Provider, outcome(event.Failed)).Inc()
		c.prom.responseTime.WithLabelValues(event.Provider).Observe(event.Duration.Seconds())

	case EventStateChanged:
		c.metrics.UpdateState(event.Provider, event.ToState)
		if event.FromState != "" {
			c.prom.providerState.WithLabelValues(event.Provider, event.FromState).Set(0)
		}
		c.prom.providerState.WithLabelValues(event.Provider, event.ToState).Set(1)

	default:
		c.logger.Debug("Unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

// TrackInFlight exports the value reported by inFlight as the in-flight
// gauge, read at scrape time. A later call replaces the earlier source.
func (c *Collector) TrackInFlight(inFlight func() int) {
	c.prom.trackInFlight(func() float64 {
		return float64(inFlight())
	})
}

func (c *Collector) Snapshot(algorithm string) Snapshot {
	return c.metrics.Snapshot(algorithm)
}

func outcome(failed bool) string {
	if failed {
		return "failure"
	}
	return "success"
}
