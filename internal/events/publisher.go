// Package events carries state-change notifications to realtime subscribers.
// Delivery is best-effort: callers publish after their transaction commits.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TopicNewOrder           = "new-order"
	TopicOrderStatusUpdated = "order-status-updated"
	TopicInventoryUpdated   = "inventory-updated"
	TopicNewNotification    = "new-notification"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Envelope is the wire shape every transport emits.
type Envelope struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload"`
}

func NewEnvelope(topic string, payload any, at time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

func encode(topic string, payload any, at time.Time) ([]byte, error) {
	data, err := json.Marshal(NewEnvelope(topic, payload, at))
	if err != nil {
		return nil, fmt.Errorf("events: encode %s: %w", topic, err)
	}
	return data, nil
}

// LogPublisher writes events to the logger only. Used when no transport is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := encode(topic, payload, time.Now())
	if err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("topic", topic), zap.ByteString("envelope", data))
	return nil
}

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, payload any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
