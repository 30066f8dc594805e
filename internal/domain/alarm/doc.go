// Package alarm contains the alarm state machine of the monitor.
//
// The machine is Inactive until an alert is dispatched, returns to Inactive
// when the feed is empty again and ignores suppressed alerts. State values are
// cloned on the way out so callers never share the machine's memory.
package alarm
