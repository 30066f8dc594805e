// Package publisher writes alerts and the alarm status to the broker topics
// under one namespace.
package publisher
