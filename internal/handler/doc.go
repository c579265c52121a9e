// Package handler exposes the load balancer over HTTP: dispatching,
// provider administration and strategy selection.
package handler
