package provider

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"
)

// Provider is a backend capable of producing a response and reporting
// whether it is alive. Identity must be stable for the provider's lifetime.
type Provider interface {
	ID() uuid.UUID
	Respond(ctx context.Context) (string, error)
	Probe(ctx context.Context) bool
}

// Compare orders providers by identity. The byte order of a UUID matches
// the lexical order of its canonical string form.
func Compare(a, b Provider) int {
	ida, idb := a.ID(), b.ID()
	return bytes.Compare(ida[:], idb[:])
}

// Sort orders providers in place by identity.
func Sort(providers []Provider) {
	slices.SortFunc(providers, Compare)
}

// Same reports whether both providers carry the same identity.
// A nil provider is never the same as anything.
func Same(a, b Provider) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}
