// Package filter decides whether a fetched feed payload is empty, must be
// suppressed, or carries a new alert to dispatch.
package filter
