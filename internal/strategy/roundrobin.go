package strategy

import (
	"slices"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

// NewRoundRobinStrategy returns the provider after last in the healthy set.
// When last is unknown, no longer healthy or at the end of the set, the
// first provider is chosen. Churn in the healthy set may therefore skip or
// repeat a provider mid-cycle.
func NewRoundRobinStrategy() Strategy {
	return Func(func(last provider.Provider, healthy []provider.Provider) provider.Provider {
		if len(healthy) == 0 {
			return nil
		}

		index := -1
		if last != nil {
			index = slices.IndexFunc(healthy, func(p provider.Provider) bool {
				return provider.Same(p, last)
			})
		}

		if index < 0 || index == len(healthy)-1 {
			return healthy[0]
		}

		return healthy[index+1]
	})
}
