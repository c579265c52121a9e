// Package registry keeps the capacity-bounded set of providers and the
// health state of each one.
//
// Every provider moves through three states driven by a periodic probe:
//
//   - ACTIVE: eligible for selection
//   - RECOVERING: failed earlier, passed one probe since
//   - INACTIVE: the last probe failed
//
// Usage:
//
//	reg := registry.New(registry.WithCapacity(10), registry.WithLogger(log))
//	reg.Add(p)
//	go reg.Run(ctx)
//	healthy := reg.Healthy()
package registry
