package loadbalancer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
	"github.com/angeloszaimis/provider-dispatcher/internal/registry"
	"github.com/angeloszaimis/provider-dispatcher/internal/strategy"
)

const tracerName = "github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"

// LoadBalancer admits, routes and executes dispatches over the healthy
// providers of a registry.
type LoadBalancer struct {
	registry *registry.Registry

	// mutex guards admission, selection, last and the in-flight increment.
	mutex    sync.Mutex
	strategy strategy.Strategy
	last     provider.Provider

	inFlight    atomic.Int64
	perProvider int
	workers     int
	pool        *ants.Pool
	closed      atomic.Bool

	logger    *slog.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
}

type result struct {
	response string
	err      error
}

// NewLoadBalancer creates a load balancer over reg using strat. The worker
// pool is never smaller than the admission limit, so an admitted dispatch
// always reaches its provider without waiting for a worker.
func NewLoadBalancer(reg *registry.Registry, strat strategy.Strategy, opts ...Option) (*LoadBalancer, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if strat == nil {
		return nil, errors.New("strategy is required")
	}

	lb := &LoadBalancer{
		registry:    reg,
		strategy:    strat,
		perProvider: DefaultPerProviderCapacity,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(lb)
	}

	lb.workers = max(lb.workers, reg.Capacity()*lb.perProvider)

	pool, err := ants.NewPool(lb.workers, ants.WithPanicHandler(func(v any) {
		lb.logger.Error("Worker panicked", slog.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	lb.pool = pool

	if lb.collector != nil {
		lb.collector.TrackInFlight(lb.InFlight)
	}

	return lb, nil
}

// Register adds p to the registry. It returns false when p is already
// registered or the registry is full.
func (lb *LoadBalancer) Register(p provider.Provider) bool {
	if !lb.registry.Add(p) {
		return false
	}

	lb.logger.Info("Provider registered", slog.String("provider", p.ID().String()))
	return true
}

// RegisterAll registers every provider and returns how many were added.
func (lb *LoadBalancer) RegisterAll(ps []provider.Provider) int {
	added := 0
	for _, p := range ps {
		if lb.Register(p) {
			added++
		}
	}
	return added
}

// Remove drops p from the registry. It returns false when p was not registered.
func (lb *LoadBalancer) Remove(p provider.Provider) bool {
	if !lb.registry.Remove(p) {
		return false
	}

	lb.logger.Info("Provider removed", slog.String("provider", p.ID().String()))
	return true
}

// SetStrategy replaces the selection strategy for subsequent dispatches.
func (lb *LoadBalancer) SetStrategy(s strategy.Strategy) {
	if s == nil {
		return
	}

	lb.mutex.Lock()
	defer lb.mutex.Unlock()
	lb.strategy = s
}

// Result is the answer of the provider that served a dispatch.
type Result struct {
	ProviderID uuid.UUID
	Response   string
}

// Dispatch admits the request, selects a provider and waits for its answer.
// The context is handed to the provider; the load balancer itself never
// cancels the call.
func (lb *LoadBalancer) Dispatch(ctx context.Context) (string, error) {
	res, err := lb.DispatchResult(ctx)
	if err != nil {
		return "", err
	}
	return res.Response, nil
}

// DispatchResult is Dispatch that also reports which provider answered.
func (lb *LoadBalancer) DispatchResult(ctx context.Context) (Result, error) {
	ctx, span := lb.tracer.Start(ctx, "Dispatch")
	defer span.End()

	if lb.closed.Load() {
		return Result{}, ErrClosed
	}

	p, err := lb.reserve()
	if err != nil {
		lb.reject(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	id := p.ID().String()
	span.SetAttributes(attribute.String("provider.id", id))
	lb.emit(metrics.MetricEvent{Type: metrics.EventProviderSelected, Provider: id})

	start := time.Now()
	response, err := lb.invoke(ctx, p)
	lb.emit(metrics.MetricEvent{
		Type:     metrics.EventResponseCompleted,
		Provider: id,
		Duration: time.Since(start),
		Failed:   err != nil,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	return Result{ProviderID: p.ID(), Response: response}, nil
}

// reserve runs admission and selection as one step and claims an in-flight
// slot for the chosen provider.
func (lb *LoadBalancer) reserve() (provider.Provider, error) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	healthy := lb.registry.Healthy()
	limit := int64(len(healthy) * lb.perProvider)
	if lb.inFlight.Load() >= limit {
		return nil, ErrCapacityExceeded
	}

	chosen := lb.strategy.SelectProvider(lb.last, healthy)
	if chosen == nil {
		return nil, ErrNoProviderAvailable
	}

	lb.last = chosen
	lb.inFlight.Add(1)
	return chosen, nil
}

// invoke runs the provider call on the worker pool. The in-flight slot is
// released before the result is handed back, whatever the outcome.
func (lb *LoadBalancer) invoke(ctx context.Context, p provider.Provider) (string, error) {
	done := make(chan result, 1)

	task := func() {
		var res result
		defer func() {
			if v := recover(); v != nil {
				res = result{err: fmt.Errorf("panic: %v", v)}
			}
			lb.inFlight.Add(-1)
			done <- res
		}()

		res.response, res.err = p.Respond(ctx)
	}

	if err := lb.pool.Submit(task); err != nil {
		lb.inFlight.Add(-1)
		if errors.Is(err, ants.ErrPoolClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("submit provider call: %w", err)
	}

	res := <-done
	if res.err != nil {
		lb.logger.Debug("Provider call failed",
			slog.String("provider", p.ID().String()),
			slog.Any("error", res.err),
		)
		return "", &ProviderError{ProviderID: p.ID(), Err: res.err}
	}

	return res.response, nil
}

func (lb *LoadBalancer) reject(err error) {
	reason := metrics.ReasonNoProvider
	if errors.Is(err, ErrCapacityExceeded) {
		reason = metrics.ReasonCapacity
	}
	lb.emit(metrics.MetricEvent{Type: metrics.EventDispatchRejected, Reason: reason})
}

func (lb *LoadBalancer) emit(event metrics.MetricEvent) {
	if lb.collector != nil {
		lb.collector.Emit(event)
	}
}

// InFlight reports how many dispatches are currently executing on a provider.
func (lb *LoadBalancer) InFlight() int {
	return int(lb.inFlight.Load())
}

// PerProviderCapacity is the number of concurrent dispatches each healthy
// provider may carry.
func (lb *LoadBalancer) PerProviderCapacity() int {
	return lb.perProvider
}

// Workers reports the size of the pool executing provider calls.
func (lb *LoadBalancer) Workers() int {
	return lb.workers
}

// Registry returns the registry the load balancer dispatches over.
func (lb *LoadBalancer) Registry() *registry.Registry {
	return lb.registry
}

// Close stops the worker pool. Calls already running are allowed to finish.
func (lb *LoadBalancer) Close() {
	if lb.closed.CompareAndSwap(false, true) {
		lb.pool.Release()
	}
}
