// Package monitor runs the poll cycle: fetch the feed, evaluate the payload,
// update the alarm and announce dispatched alerts.
package monitor
