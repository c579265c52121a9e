package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/provider-dispatcher/config"
	"github.com/angeloszaimis/provider-dispatcher/internal/handler"
	"github.com/angeloszaimis/provider-dispatcher/internal/httpserver"
	"github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"
	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
	"github.com/angeloszaimis/provider-dispatcher/internal/registry"
	"github.com/angeloszaimis/provider-dispatcher/internal/strategy"
	"github.com/angeloszaimis/provider-dispatcher/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Dispatcher stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Dispatcher stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	collector := metrics.NewCollector(metricsBufferSize, log)

	reg := registry.New(
		registry.WithCapacity(cfg.Registry.Capacity),
		registry.WithProbeInterval(cfg.ProbeInterval()),
		registry.WithLogger(log),
		registry.WithStateListener(stateListener(collector)),
	)

	strat, err := strategy.ByName(cfg.Balancer.Strategy)
	if err != nil {
		return err
	}

	lb, err := loadbalancer.NewLoadBalancer(reg, strat,
		loadbalancer.WithPerProviderCapacity(cfg.Balancer.PerProviderCapacity),
		loadbalancer.WithWorkers(cfg.Balancer.Workers),
		loadbalancer.WithLogger(log),
		loadbalancer.WithCollector(collector),
	)
	if err != nil {
		return err
	}
	defer lb.Close()

	providers, err := initializeProviders(cfg)
	if err != nil {
		return err
	}

	added := lb.RegisterAll(providers)
	if added < len(providers) {
		log.Warn("Some providers were not registered",
			slog.Int("configured", len(providers)),
			slog.Int("registered", added),
			slog.Int("capacity", reg.Capacity()))
	}
	if added == 0 {
		log.Warn("No providers registered, add some with POST /providers")
	}

	for _, e := range reg.Entries() {
		collector.Emit(metrics.MetricEvent{
			Type:     metrics.EventStateChanged,
			Provider: e.Provider.ID().String(),
			ToState:  e.State.String(),
		})
	}

	strategyHandler := handler.NewStrategyHandler(log, lb, cfg.Balancer.Strategy)
	router := setupRouter(
		handler.NewDispatchHandler(log, lb),
		handler.NewProvidersHandler(log, lb, syntheticOptions(cfg)...),
		strategyHandler,
		collector,
	)

	srv, err := httpserver.New(cfg.Server.Address, router, log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("Dispatcher starting",
		slog.String("strategy", strategyHandler.Current()),
		slog.Int("providers", added),
		slog.Int("per_provider_capacity", lb.PerProviderCapacity()),
		slog.Duration("probe_interval", reg.ProbeInterval()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		collector.Run(ctx)
		return nil
	})

	g.Go(func() error {
		reg.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

func initializeProviders(cfg *config.Config) ([]provider.Provider, error) {
	providers := make([]provider.Provider, 0, cfg.Providers.Synthetic.Count+len(cfg.Providers.HTTP))

	opts := syntheticOptions(cfg)
	for i := 0; i < cfg.Providers.Synthetic.Count; i++ {
		providers = append(providers, provider.NewSynthetic(opts...))
	}

	for _, hc := range cfg.Providers.HTTP {
		u, err := url.Parse(hc.URL)
		if err != nil {
			return nil, fmt.Errorf("parse provider url %q: %w", hc.URL, err)
		}
		providers = append(providers, provider.NewHTTP(u))
	}

	return providers, nil
}

func syntheticOptions(cfg *config.Config) []provider.SyntheticOption {
	return []provider.SyntheticOption{
		provider.WithSuccessRate(cfg.Providers.Synthetic.SuccessRate),
		provider.WithLatency(cfg.SyntheticLatency()),
	}
}

// stateListener forwards committed state transitions to the metrics collector.
func stateListener(collector *metrics.Collector) registry.StateListener {
	return func(p provider.Provider, from, to registry.State) {
		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventStateChanged,
			Provider:  p.ID().String(),
			FromState: from.String(),
			ToState:   to.String(),
		})
	}
}
