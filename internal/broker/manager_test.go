package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeClient struct {
	mu           sync.Mutex
	failures     int
	connects     int
	disconnects  int
	handlers     Handlers
	publications []published
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	f.connects++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return errRefused
	}

	if f.handlers.OnConnect != nil {
		f.handlers.OnConnect()
	}

	return nil
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.publications = append(f.publications, published{topic, qos, retained, string(payload)})

	return nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnects++
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connects
}

func (f *fakeClient) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]published(nil), f.publications...)
}

func newTestManager(t *testing.T, fake *fakeClient, opts ...ManagerOption) *Manager {
	t.Helper()

	factory := func(_ Options, h Handlers) Client {
		fake.handlers = h

		return fake
	}

	opts = append([]ManagerOption{
		WithClientFactory(factory),
		WithWaitInterval(5 * time.Millisecond),
		WithReconnectMax(20 * time.Millisecond),
	}, opts...)

	m := NewManager(Options{BrokerURL: "tcp://127.0.0.1:1883", ClientID: "test"}, opts...)
	t.Cleanup(m.Close)

	return m
}

func TestManagerConnects(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{}
	m := newTestManager(t, fake)
	require.Equal(t, Disconnected, m.Status())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.Start(ctx)
	require.NoError(t, m.WaitConnected(ctx))
	require.Equal(t, Connected, m.Status())
	require.Equal(t, 1, fake.connectCount())
}

func TestManagerRetriesUntilConnected(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{failures: 3}
	m := newTestManager(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.Start(ctx)
	require.NoError(t, m.WaitConnected(ctx))
	require.Equal(t, 4, fake.connectCount())
}

func TestManagerWaitConnectedHonoursCancellation(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{failures: 1 << 20}
	m := newTestManager(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	m.Start(context.Background())
	require.ErrorIs(t, m.WaitConnected(ctx), context.DeadlineExceeded)
	require.NotEqual(t, Connected, m.Status())
}

func TestManagerReconnectsAfterLoss(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		history []Status
	)

	fake := &fakeClient{}
	m := newTestManager(t, fake, WithStatusHook(func(s Status) {
		mu.Lock()
		history = append(history, s)
		mu.Unlock()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.Start(ctx)
	require.NoError(t, m.WaitConnected(ctx))

	fake.handlers.OnConnectionLost(errRefused)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return fake.connectCount() == 2 && len(history) > 0 && history[len(history)-1] == Connected
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []Status{Connecting, Connected, Disconnected, Connecting, Connected}, history)
}

func TestManagerPublish(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{}
	m := newTestManager(t, fake, WithPublishOptions(PublishOptions{QoS: 1, Retain: true}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.ErrorIs(t, m.Publish(ctx, "redalert/status", []byte("on")), ErrNotConnected)

	m.Start(ctx)
	require.NoError(t, m.WaitConnected(ctx))
	require.NoError(t, m.Publish(ctx, "redalert/status", []byte("on")))

	require.Equal(t, []published{{"redalert/status", 1, true, "on"}}, fake.sent())
}

func TestManagerCloseDisconnects(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{}
	m := newTestManager(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.Start(ctx)
	require.NoError(t, m.WaitConnected(ctx))

	m.Close()
	require.Equal(t, Disconnected, m.Status())
	require.ErrorIs(t, m.Publish(ctx, "redalert/data", nil), ErrNotConnected)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "disconnected", Disconnected.String())
	require.Equal(t, "connecting", Connecting.String())
	require.Equal(t, "connected", Connected.String())
	require.Equal(t, "unknown", Status(42).String())
}
