// Package ops serves the operational HTTP endpoints: Prometheus metrics,
// a health probe and the status document.
package ops
