package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/oshokin/redalert/internal/domain/alarm"
	"github.com/oshokin/redalert/internal/domain/alert"
	"github.com/oshokin/redalert/internal/domain/report"
	"github.com/oshokin/redalert/internal/logger"
	"github.com/oshokin/redalert/internal/metrics"
	"github.com/oshokin/redalert/internal/notify"
	"github.com/oshokin/redalert/internal/repository/seen"
	"github.com/oshokin/redalert/internal/repository/state"
	"github.com/oshokin/redalert/internal/service/publisher"
)

// ErrPanic marks a cycle that panicked and was recovered.
var ErrPanic = errors.New("cycle panicked")

// Fetcher returns the raw feed text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Evaluator turns a raw payload into a decision.
type Evaluator interface {
	Evaluate(ctx context.Context, raw string) (alert.Decision, error)
}

// Publisher writes to the broker topics.
type Publisher interface {
	PublishData(ctx context.Context, regions []string) error
	PublishAlert(ctx context.Context, a *alert.Alert) error
	PublishStatus(ctx context.Context, status string) error
}

// Notifier fans a message out to the configured sinks.
type Notifier interface {
	NotifyAll(ctx context.Context, title, body string) error
}

// BrokerStatus reports the broker session for the status endpoints.
type BrokerStatus func() (status string, connected bool)

// Dependencies are the collaborators of a Monitor. State and Seen are optional.
type Dependencies struct {
	Fetcher   Fetcher
	Evaluator Evaluator
	Machine   *alarm.Machine
	Publisher Publisher
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// State persists the alarm and seen ids after every change.
	State state.Repository
	// Seen provides the ids to persist alongside the alarm.
	Seen seen.Snapshotter
	// Broker is used in reports only.
	Broker BrokerStatus
	// Sinks is reported as is.
	Sinks int
	// Feed is reported as is.
	Feed string
}

// Monitor owns the per-process state of the pipeline.
type Monitor struct {
	deps     Dependencies
	interval time.Duration
	ticker   func(time.Duration) (<-chan time.Time, func())

	mu          sync.RWMutex
	cycles      uint64
	lastCycleAt time.Time
	lastError   string
}

// New creates a monitor running a cycle every interval.
func New(deps Dependencies, interval time.Duration) *Monitor {
	if deps.Machine == nil {
		deps.Machine = alarm.NewMachine(nil)
	}

	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Monitor{
		deps:     deps,
		interval: interval,
		ticker:   newTicker,
	}
}

func newTicker(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)

	return t.C, t.Stop
}

// Run executes the first cycle immediately and then one per tick until ctx is
// canceled. Cycles never overlap: ticks that fire during a cycle are dropped.
func (m *Monitor) Run(ctx context.Context) error {
	ticks, stop := m.ticker(m.interval)
	defer stop()

	logger.InfoKV(ctx, "Polling alert feed", "feed", m.deps.Feed, "interval", m.interval.String())

	for {
		m.runCycle(ctx)

		// A tick that fired while the cycle ran is stale.
		select {
		case <-ticks:
		default:
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, stopping monitor")

			return nil
		case <-ticks:
		}
	}
}

// runCycle runs one cycle and logs its outcome.
func (m *Monitor) runCycle(ctx context.Context) {
	if err := m.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}

		logger.ErrorKV(ctx, "Cycle failed", "error", err)
	}
}

// RunCycle performs fetch, evaluate, apply and announce once.
// Every error of the cycle, panics included, is returned combined; none of them
// leaves the alarm in a partial state.
func (m *Monitor) RunCycle(ctx context.Context) (err error) {
	ctx = logger.WithKV(ctx, "cycle", uuid.NewString())
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recovered from panic", "panic", r, "stack", string(debug.Stack()))
			err = multierr.Append(err, fmt.Errorf("%w: %v", ErrPanic, r))
		}

		m.finishCycle(time.Since(started), err)
	}()

	raw, err := m.deps.Fetcher.Fetch(ctx)
	if err != nil {
		m.deps.Metrics.FetchFailed()

		return err
	}

	decision, err := m.deps.Evaluator.Evaluate(ctx, raw)
	if err != nil {
		return fmt.Errorf("evaluate payload: %w", err)
	}

	m.deps.Metrics.Decision(decision.Verdict.String(), string(decision.Reason))

	transition := m.deps.Machine.Apply(decision)
	m.deps.Metrics.SetAlarmActive(transition.To == alarm.Active)

	if transition.Changed() {
		logger.InfoKV(ctx, "Alarm status changed", "from", transition.From.String(), "to", transition.To.String())
	}

	switch decision.Verdict {
	case alert.Dispatch:
		err = multierr.Append(err, m.announce(ctx, decision.Alert))
	case alert.Empty:
		err = multierr.Append(err, m.publish(ctx, "status", func(ctx context.Context) error {
			return m.deps.Publisher.PublishStatus(ctx, publisher.StatusOff)
		}))
	case alert.Suppressed:
		logger.DebugKV(ctx, "Alert suppressed", "id", decision.Alert.ID, "reason", string(decision.Reason))
	}

	if transition.Changed() || decision.Verdict == alert.Dispatch {
		err = multierr.Append(err, m.persist(ctx))
	}

	return err
}

// announce publishes the alert on all three topics and notifies every sink.
// A failed publish does not prevent the notifications.
func (m *Monitor) announce(ctx context.Context, a *alert.Alert) error {
	logger.InfoKV(ctx, "Dispatching alert", "id", a.ID, "title", a.Title, "regions", a.Regions)
	logger.DebugKV(ctx, "Alert payload", "alert", string(a.Raw))

	errs := multierr.Combine(
		m.publish(ctx, "data", func(ctx context.Context) error {
			return m.deps.Publisher.PublishData(ctx, a.Regions)
		}),
		m.publish(ctx, "alerts", func(ctx context.Context) error {
			return m.deps.Publisher.PublishAlert(ctx, a)
		}),
		m.publish(ctx, "status", func(ctx context.Context) error {
			return m.deps.Publisher.PublishStatus(ctx, publisher.StatusOn)
		}),
	)

	if m.deps.Notifier != nil {
		errs = multierr.Append(errs, m.deps.Notifier.NotifyAll(ctx, a.Title, notify.FormatBody(a.Regions, a.Description)))
	}

	return errs
}

func (m *Monitor) publish(ctx context.Context, channel string, send func(context.Context) error) error {
	err := send(ctx)
	m.deps.Metrics.Published(channel, err)

	return err
}

// persist saves the alarm state and the seen ids when a repository is configured.
func (m *Monitor) persist(ctx context.Context) error {
	if m.deps.State == nil {
		return nil
	}

	snapshot := &state.Snapshot{Alarm: m.deps.Machine.State()}
	if m.deps.Seen != nil {
		snapshot.SeenIDs = m.deps.Seen.Snapshot()
	}

	if err := m.deps.State.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	return nil
}

func (m *Monitor) finishCycle(elapsed time.Duration, err error) {
	m.deps.Metrics.ObserveCycle(elapsed, err)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cycles++
	m.lastCycleAt = time.Now()
	m.lastError = ""

	if err != nil {
		m.lastError = err.Error()
	}
}

// Report implements report.Reporter.
func (m *Monitor) Report() report.Report {
	m.mu.RLock()
	r := report.Report{
		Alarm:       *m.deps.Machine.State(),
		Cycles:      m.cycles,
		LastCycleAt: m.lastCycleAt,
		LastError:   m.lastError,
		Sinks:       m.deps.Sinks,
		Feed:        m.deps.Feed,
	}
	m.mu.RUnlock()

	if m.deps.Broker != nil {
		r.Broker, r.BrokerConnected = m.deps.Broker()
	}

	return r
}
