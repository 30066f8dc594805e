// Package report describes the monitor as seen by the status endpoints.
package report

import (
	"time"

	"github.com/oshokin/redalert/internal/domain/alarm"
)

// Report is a point-in-time view of the running monitor.
type Report struct {
	// Alarm is the current alarm state.
	Alarm alarm.State
	// Broker is the broker session status, e.g. "connected".
	Broker string
	// BrokerConnected is true while publishes can be sent.
	BrokerConnected bool
	// Cycles counts finished poll cycles.
	Cycles uint64
	// LastCycleAt is when the last cycle finished.
	LastCycleAt time.Time
	// LastError is the error of the last failed cycle, if any.
	LastError string
	// Sinks is the number of configured notification sinks.
	Sinks int
	// Feed is the URL being polled.
	Feed string
}

// Reporter produces reports.
type Reporter interface {
	Report() Report
}
