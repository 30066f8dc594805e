package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/redalert/internal/logger"
)

// ErrNotConnected is returned by Publish while the session is down.
// Such publishes are dropped, not queued.
var ErrNotConnected = errors.New("broker is not connected")

const (
	// DefaultWaitInterval is how often WaitConnected polls the status.
	DefaultWaitInterval = time.Second
	// DefaultReconnectMax caps the delay between failed attempts.
	DefaultReconnectMax = 30 * time.Second
	// reconnectInitial is the first delay after the immediate attempt failed.
	reconnectInitial = 500 * time.Millisecond
)

// PublishOptions applies to every message sent through the Manager.
type PublishOptions struct {
	QoS    byte
	Retain bool
}

// Manager maintains the broker session and owns its status.
type Manager struct {
	options   Options
	publish   PublishOptions
	newClient ClientFactory

	waitInterval time.Duration
	reconnectMax time.Duration
	onStatus     func(Status)

	client Client
	status atomic.Int32

	loopMu  sync.Mutex
	looping bool
	// lostPending records a loss reported while a connect loop was running.
	lostPending bool

	// ctx scopes background connect loops; cancel stops them on Close.
	ctx    context.Context //nolint:containedctx // Lifetime of background loops.
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClientFactory replaces the Paho client, mainly for tests.
func WithClientFactory(factory ClientFactory) ManagerOption {
	return func(m *Manager) {
		if factory != nil {
			m.newClient = factory
		}
	}
}

// WithWaitInterval sets the status polling interval of WaitConnected.
func WithWaitInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.waitInterval = interval
		}
	}
}

// WithReconnectMax caps the backoff between failed attempts.
func WithReconnectMax(limit time.Duration) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.reconnectMax = limit
		}
	}
}

// WithPublishOptions sets QoS and retain flag of every publish.
func WithPublishOptions(p PublishOptions) ManagerOption {
	return func(m *Manager) {
		m.publish = p
	}
}

// WithStatusHook registers a function called on every status change.
func WithStatusHook(hook func(Status)) ManagerOption {
	return func(m *Manager) {
		m.onStatus = hook
	}
}

// NewManager creates a manager; nothing connects until Start.
func NewManager(opts Options, managerOpts ...ManagerOption) *Manager {
	m := &Manager{
		options:      opts,
		newClient:    NewPahoClient,
		waitInterval: DefaultWaitInterval,
		reconnectMax: DefaultReconnectMax,
	}

	for _, opt := range managerOpts {
		opt(m)
	}

	return m
}

// Start creates the client and launches the first connect attempt in the background.
func (m *Manager) Start(ctx context.Context) {
	m.once.Do(func() {
		m.ctx, m.cancel = context.WithCancel(logger.WithName(ctx, "broker"))
		m.client = m.newClient(m.options, Handlers{
			OnConnect:        m.handleConnected,
			OnConnectionLost: m.handleConnectionLost,
		})

		logger.InfoKV(m.ctx, "Connecting to broker", "broker", m.options.BrokerURL, "client_id", m.options.ClientID)
		m.reconnect()
	})
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	return Status(m.status.Load())
}

// WaitConnected blocks until the session is up, polling the status at a fixed interval.
// It returns early only when ctx is canceled.
func (m *Manager) WaitConnected(ctx context.Context) error {
	if m.Status() == Connected {
		return nil
	}

	ticker := time.NewTicker(m.waitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Status() == Connected {
				return nil
			}

			logger.InfoKV(ctx, "Waiting for broker connection", "status", m.Status().String())
		}
	}
}

// Publish sends payload to topic without waiting for acknowledgement.
func (m *Manager) Publish(_ context.Context, topic string, payload []byte) error {
	if m.Status() != Connected || m.client == nil {
		return ErrNotConnected
	}

	return m.client.Publish(topic, m.publish.QoS, m.publish.Retain, payload)
}

// Close stops reconnecting and disconnects.
func (m *Manager) Close() {
	if m.cancel == nil {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.client.Disconnect()
	m.setStatus(Disconnected)
}

// handleConnected is the transport's connect callback.
func (m *Manager) handleConnected() {
	if m.setStatus(Connected) {
		logger.Info(m.ctx, "Connected to broker")
	}
}

// handleConnectionLost is the transport's connection-lost callback.
// A new attempt starts immediately.
func (m *Manager) handleConnectionLost(err error) {
	logger.WarnKV(m.ctx, "Broker connection lost", "error", err)
	m.setStatus(Disconnected)

	if m.ctx.Err() != nil {
		return
	}

	m.reconnect()
}

// reconnect starts a connect loop unless one is already running.
func (m *Manager) reconnect() {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	if m.looping {
		m.lostPending = true

		return
	}

	m.looping = true
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		for {
			m.connectLoop()

			m.loopMu.Lock()
			again := m.lostPending && m.ctx.Err() == nil && m.Status() != Connected
			m.lostPending = false

			if !again {
				m.looping = false
				m.loopMu.Unlock()

				return
			}

			m.loopMu.Unlock()
		}
	}()
}

// connectLoop tries right away, then backs off exponentially up to reconnectMax
// until a session is established or the manager is closed.
func (m *Manager) connectLoop() {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = reconnectInitial
	policy.MaxInterval = m.reconnectMax
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		m.setStatus(Connecting)

		if err := m.client.Connect(m.ctx); err != nil {
			if m.ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			m.setStatus(Disconnected)
			logger.ErrorKV(m.ctx, "Broker connection failed", "attempt", attempt, "error", err)

			return err
		}

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, m.ctx)); err != nil {
		return
	}

	m.handleConnected()
}

// setStatus stores s and reports whether it changed.
func (m *Manager) setStatus(s Status) bool {
	previous := Status(m.status.Swap(int32(s)))
	if previous == s {
		return false
	}

	if m.onStatus != nil {
		m.onStatus(s)
	}

	return true
}
