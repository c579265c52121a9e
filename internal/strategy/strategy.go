package strategy

import (
	"errors"
	"fmt"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

const (
	NameRoundRobin = "round-robin"
	NameRandom     = "random"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy picks the next provider from the healthy set, given the provider
// chosen on the previous call (nil if none). It returns nil when no provider
// can take the request. Implementations must not keep state between calls.
type Strategy interface {
	SelectProvider(last provider.Provider, healthy []provider.Provider) provider.Provider
}

// Func adapts an ordinary function to the Strategy interface.
type Func func(last provider.Provider, healthy []provider.Provider) provider.Provider

func (f Func) SelectProvider(last provider.Provider, healthy []provider.Provider) provider.Provider {
	return f(last, healthy)
}

// ByName returns the built-in strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch name {
	case NameRoundRobin:
		return NewRoundRobinStrategy(), nil
	case NameRandom:
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names lists the built-in strategy names.
func Names() []string {
	return []string{NameRoundRobin, NameRandom}
}
