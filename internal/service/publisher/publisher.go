package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oshokin/redalert/internal/domain/alert"
	"github.com/oshokin/redalert/internal/logger"
)

const (
	// StatusOn is published when an alert is dispatched.
	StatusOn = "on"
	// StatusOff is published on every cycle without an active alert.
	StatusOff = "No active alerts"

	topicData   = "data"
	topicAlerts = "alerts"
	topicStatus = "status"
)

// Sender is the broker side of the publisher.
type Sender interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Publisher sends best-effort messages: no acknowledgement is awaited and nothing is retried.
type Publisher struct {
	sender    Sender
	namespace string
}

// New creates a publisher writing under namespace.
func New(sender Sender, namespace string) *Publisher {
	return &Publisher{
		sender:    sender,
		namespace: strings.Trim(namespace, "/"),
	}
}

// Topic returns the full topic name for a channel.
func (p *Publisher) Topic(channel string) string {
	if p.namespace == "" {
		return channel
	}

	return p.namespace + "/" + channel
}

// PublishData sends the affected regions as a JSON array.
func (p *Publisher) PublishData(ctx context.Context, regions []string) error {
	if regions == nil {
		regions = []string{}
	}

	payload, err := json.Marshal(regions)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}

	return p.send(ctx, topicData, payload)
}

// PublishAlert sends the full alert record.
func (p *Publisher) PublishAlert(ctx context.Context, a *alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode alert %d: %w", a.ID, err)
	}

	return p.send(ctx, topicAlerts, payload)
}

// PublishStatus sends a plain status text, StatusOn or StatusOff.
func (p *Publisher) PublishStatus(ctx context.Context, status string) error {
	return p.send(ctx, topicStatus, []byte(status))
}

func (p *Publisher) send(ctx context.Context, channel string, payload []byte) error {
	topic := p.Topic(channel)

	if err := p.sender.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	logger.DebugKV(ctx, "Published message", "topic", topic, "bytes", len(payload))

	return nil
}
