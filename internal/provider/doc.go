// Package provider defines the unit of work the load balancer dispatches to.
// A provider produces a response and reports its own liveness through a probe.
// It ships a synthetic identifier generator and an HTTP-backed provider.
package provider
