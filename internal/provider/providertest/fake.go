// Package providertest provides a controllable provider for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Fake is a provider whose probe outcome, response and blocking behavior
// are set by the test.
type Fake struct {
	id      uuid.UUID
	healthy atomic.Bool
	calls   atomic.Int64
	probes  atomic.Int64

	mutex   sync.Mutex
	err     error
	panicV  any
	release chan struct{}
	started chan struct{}
}

func New() *Fake {
	return WithID(uuid.New())
}

// WithID creates a healthy fake with a fixed identity.
func WithID(id uuid.UUID) *Fake {
	f := &Fake{id: id}
	f.healthy.Store(true)
	return f
}

// Ordered creates n fakes whose identities sort in creation order.
func Ordered(n int) []*Fake {
	fakes := make([]*Fake, n)
	for i := range fakes {
		fakes[i] = WithID(uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1)))
	}
	return fakes
}

func (f *Fake) ID() uuid.UUID {
	return f.id
}

func (f *Fake) Respond(ctx context.Context) (string, error) {
	f.calls.Add(1)

	f.mutex.Lock()
	err, panicV, release, started := f.err, f.panicV, f.release, f.started
	f.mutex.Unlock()

	if started != nil {
		started <- struct{}{}
	}

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if panicV != nil {
		panic(panicV)
	}

	if err != nil {
		return "", err
	}

	return f.id.String(), nil
}

func (f *Fake) Probe(_ context.Context) bool {
	f.probes.Add(1)
	return f.healthy.Load()
}

// SetHealthy sets the outcome of every following probe.
func (f *Fake) SetHealthy(healthy bool) {
	f.healthy.Store(healthy)
}

// FailWith makes Respond return err. A nil err restores normal responses.
func (f *Fake) FailWith(err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.err = err
}

// PanicWith makes Respond panic with v.
func (f *Fake) PanicWith(v any) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.panicV = v
}

// Block makes Respond signal on the returned started channel and then wait
// until release is closed.
func (f *Fake) Block() (started <-chan struct{}, release chan<- struct{}) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	s := make(chan struct{}, 64)
	r := make(chan struct{})
	f.started = s
	f.release = r
	return s, r
}

func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

func (f *Fake) Probes() int {
	return int(f.probes.Load())
}
