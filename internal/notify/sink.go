package notify

import (
	"context"
	"fmt"
	"strings"
)

// Message is what every sink receives.
type Message struct {
	Title string
	Body  string
}

// Sink delivers a message to one external channel.
type Sink interface {
	// Name identifies the sink in logs without leaking credentials.
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// SinkError is a delivery failure of one sink.
type SinkError struct {
	Sink string
	Err  error
}

// Error implements error.
func (e *SinkError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Sink, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// bodyPrefix reads "In the following areas:".
const bodyPrefix = "באזורים הבאים: \r\n "

// FormatBody renders the notification text of an alert.
func FormatBody(regions []string, description string) string {
	return bodyPrefix + strings.Join(regions, ", ") + "\r\n" + description
}
