package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/redalert/internal/logger"
)

// DefaultTimeout bounds a single sink call.
const DefaultTimeout = 10 * time.Second

// Dispatcher calls every sink concurrently with the same message.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	onSent  func(sink string, err error)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-sink timeout.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithResultHook registers a function called once per sink and message.
func WithResultHook(hook func(sink string, err error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onSent = hook
	}
}

// NewDispatcher creates a dispatcher over a fixed set of sinks.
func NewDispatcher(sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Len returns the number of configured sinks.
func (d *Dispatcher) Len() int {
	return len(d.sinks)
}

// NotifyAll delivers the message to all sinks and waits for each of them to
// finish or time out. A failing sink never blocks the others; failures are
// returned combined as *SinkError values.
func (d *Dispatcher) NotifyAll(ctx context.Context, title, body string) error {
	if len(d.sinks) == 0 {
		return nil
	}

	var (
		msg  = Message{Title: title, Body: body}
		errs = make([]error, len(d.sinks))
		wg   sync.WaitGroup
	)

	for i, sink := range d.sinks {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs[i] = d.notify(ctx, sink, msg)
		}()
	}

	wg.Wait()

	return multierr.Combine(errs...)
}

// notify runs one sink under its own deadline. Sinks that ignore the context
// are abandoned when the deadline passes.
func (d *Dispatcher) notify(ctx context.Context, sink Sink, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- sink.Notify(ctx, msg)
	}()

	var err error

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if d.onSent != nil {
		d.onSent(sink.Name(), err)
	}

	if err != nil {
		logger.ErrorKV(ctx, "Notification failed", "sink", sink.Name(), "error", err)

		return &SinkError{Sink: sink.Name(), Err: err}
	}

	logger.DebugKV(ctx, "Notification sent", "sink", sink.Name())

	return nil
}
