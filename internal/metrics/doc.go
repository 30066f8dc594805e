// Package metrics holds the Prometheus collectors of the monitor.
package metrics
