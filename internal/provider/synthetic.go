package provider

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

const DefaultSuccessRate = 0.9

// Synthetic is a provider whose response is its own identity. Its probe
// succeeds with a fixed probability, which makes it useful for exercising
// the registry state machine without real backends.
type Synthetic struct {
	id          uuid.UUID
	successRate float64
	latency     time.Duration
}

type SyntheticOption func(*Synthetic)

// WithSuccessRate sets the probability in [0, 1] that a probe succeeds.
func WithSuccessRate(rate float64) SyntheticOption {
	return func(s *Synthetic) {
		s.successRate = min(max(rate, 0), 1)
	}
}

// WithLatency makes every Respond call take at least d.
func WithLatency(d time.Duration) SyntheticOption {
	return func(s *Synthetic) {
		s.latency = d
	}
}

func WithID(id uuid.UUID) SyntheticOption {
	return func(s *Synthetic) {
		s.id = id
	}
}

func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{
		id:          uuid.New(),
		successRate: DefaultSuccessRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthetic) ID() uuid.UUID {
	return s.id
}

// Respond returns the provider identity as a string.
func (s *Synthetic) Respond(ctx context.Context) (string, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return s.id.String(), nil
}

func (s *Synthetic) Probe(_ context.Context) bool {
	return rand.Float64() < s.successRate
}

func (s *Synthetic) String() string {
	return "synthetic:" + s.id.String()
}
