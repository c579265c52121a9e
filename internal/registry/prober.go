package registry

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

type transition struct {
	provider provider.Provider
	from     State
	to       State
}

// Run sweeps once immediately and then on every probe interval until ctx
// is cancelled.
func (r *Registry) Run(ctx context.Context) {
	r.logger.Info("Probe loop started", slog.Duration("interval", r.interval))
	defer r.logger.Info("Probe loop stopped")

	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep probes every registered provider and applies the resulting state
// transitions in a single step. Providers removed while their probe was in
// flight are skipped.
func (r *Registry) Sweep(ctx context.Context) {
	r.mutex.RLock()
	targets := make([]provider.Provider, 0, len(r.entries))
	for _, e := range r.entries {
		targets = append(targets, e.provider)
	}
	r.mutex.RUnlock()

	if len(targets) == 0 {
		return
	}

	results := make([]bool, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(r.capacity)
	for i, p := range targets {
		g.Go(func() error {
			results[i] = r.probe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	changed := r.apply(targets, results)

	for _, t := range changed {
		r.logTransition(t)
		if r.listener != nil {
			r.listener(t.provider, t.from, t.to)
		}
	}
}

func (r *Registry) apply(targets []provider.Provider, results []bool) []transition {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var changed []transition
	for i, p := range targets {
		e, ok := r.entries[p.ID()]
		if !ok {
			continue
		}

		next := e.state.Next(results[i])
		if next != e.state {
			changed = append(changed, transition{provider: p, from: e.state, to: next})
			e.state = next
		}
	}

	if len(changed) > 0 {
		r.publish()
	}
	return changed
}

// probe treats a panicking provider as a failed probe.
func (r *Registry) probe(ctx context.Context, p provider.Provider) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Probe panicked",
				slog.String("provider", p.ID().String()),
				slog.Any("panic", rec))
			ok = false
		}
	}()

	return p.Probe(ctx)
}

func (r *Registry) logTransition(t transition) {
	attrs := []any{
		slog.String("provider", t.provider.ID().String()),
		slog.String("from", t.from.String()),
		slog.String("to", t.to.String()),
	}

	switch t.to {
	case StateInactive:
		r.logger.Warn("Provider is down", attrs...)
	case StateRecovering:
		r.logger.Info("Provider is recovering", attrs...)
	case StateActive:
		r.logger.Info("Provider is back up", attrs...)
	}
}
