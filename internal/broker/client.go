package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client is the subset of an MQTT client the Manager drives.
type Client interface {
	// Connect blocks until the session is established or fails.
	Connect(ctx context.Context) error
	// Publish sends without waiting for acknowledgement.
	Publish(topic string, qos byte, retained bool, payload []byte) error
	// Disconnect closes the session.
	Disconnect()
}

// Handlers are the transport callbacks the Manager reacts to.
type Handlers struct {
	OnConnect        func()
	OnConnectionLost func(err error)
}

// ClientFactory creates a disconnected client.
type ClientFactory func(opts Options, handlers Handlers) Client

// Options describes the broker session.
type Options struct {
	// BrokerURL is tcp://host:port.
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration
	// ConnectTimeout bounds the network handshake of one attempt.
	ConnectTimeout time.Duration
}

// DefaultQuiesce is how long Disconnect waits for in-flight work.
const DefaultQuiesce = 250 * time.Millisecond

// errPublishRejected is returned when the client refuses a publish synchronously.
var errPublishRejected = errors.New("publish rejected by client")

// pahoClient adapts the Eclipse Paho client.
type pahoClient struct {
	client pahomqtt.Client
}

var _ Client = (*pahoClient)(nil)

// NewPahoClient is the production ClientFactory.
//
//nolint:ireturn // Factories return the interface the Manager consumes.
func NewPahoClient(opts Options, handlers Handlers) Client {
	o := pahomqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetUsername(opts.Username)
	o.SetPassword(opts.Password)

	if opts.KeepAlive > 0 {
		o.SetKeepAlive(opts.KeepAlive)
	}

	if opts.ConnectTimeout > 0 {
		o.SetConnectTimeout(opts.ConnectTimeout)
	}

	// The monitor only publishes, so the broker keeps no session for it.
	o.SetCleanSession(true)
	// Reconnects are driven by the Manager.
	o.SetAutoReconnect(false)
	o.SetConnectRetry(false)

	o.SetOnConnectHandler(func(pahomqtt.Client) {
		if handlers.OnConnect != nil {
			handlers.OnConnect()
		}
	})
	o.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if handlers.OnConnectionLost != nil {
			handlers.OnConnectionLost(err)
		}
	})

	return &pahoClient{client: pahomqtt.NewClient(o)}
}

// Connect implements Client.
func (p *pahoClient) Connect(ctx context.Context) error {
	token := p.client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements Client. QoS 0 tokens complete locally, so an error is
// only reported when the client has already rejected the message.
func (p *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", errPublishRejected, err)
		}
	default:
	}

	return nil
}

// Disconnect implements Client.
func (p *pahoClient) Disconnect() {
	if p.client.IsConnectionOpen() {
		p.client.Disconnect(uint(DefaultQuiesce / time.Millisecond))
	}
}
