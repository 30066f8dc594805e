// Package state persists the alarm state and the dispatched alert ids, so a
// restarted monitor neither re-announces old alerts nor forgets an active alarm.
package state
