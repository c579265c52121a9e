package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

func NewRandomStrategy() Strategy {
	return Func(func(_ provider.Provider, healthy []provider.Provider) provider.Provider {
		if len(healthy) == 0 {
			return nil
		}

		index := rand.IntN(len(healthy))
		return healthy[index]
	})
}
