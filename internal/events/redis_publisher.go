package events

import (
	"context"
	"fmt"
	"time"
)

// ChannelPublisher is the slice of the redis client the publisher needs.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// RedisPublisher emits each topic on its own pub/sub channel, "<prefix>:<topic>".
type RedisPublisher struct {
	client ChannelPublisher
	prefix string
	now    func() time.Time
}

func NewRedisPublisher(client ChannelPublisher, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, now: time.Now}
}

func (p *RedisPublisher) Channel(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + ":" + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := encode(topic, payload, p.now())
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.Channel(topic), data); err != nil {
		return fmt.Errorf("events: redis publish %s: %w", topic, err)
	}
	return nil
}
