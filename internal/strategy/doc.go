// Package strategy defines the provider selection contract and implements
// the built-in policies:
//
//   - Round Robin: the provider following the previous choice, in identity order
//   - Random: a uniform draw over the healthy set
//
// Strategies hold no state. The load balancer owns the previous choice and
// passes it in together with the current healthy set.
package strategy
