package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskhub-api/internal/logger"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "taskhub:notifications"

// RedisBroker relays events through Redis so that subscribers connected to any
// instance receive them.
type RedisBroker struct {
	client  *redis.Client
	channel string
	local   Sink
	log     *slog.Logger
}

func NewRedisBroker(client *redis.Client, local Sink, log *slog.Logger) *RedisBroker {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBroker{client: client, channel: DefaultChannel, local: local, log: log}
}

// Deliver publishes evt to every instance, this one included.
func (b *RedisBroker) Deliver(ctx context.Context, evt Event) error {
	raw, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run relays messages from Redis to the local sink until ctx ends.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			evt, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				b.log.Warn("dropping malformed notification", logger.Error(err))
				continue
			}
			_ = b.local.Deliver(ctx, evt)
		}
	}
}

func encodeEvent(evt Event) ([]byte, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return raw, nil
}

func decodeEvent(raw []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Event{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	if evt.Type == "" || evt.Topic == "" {
		return Event{}, fmt.Errorf("failed to decode notification: missing type or topic")
	}
	return evt, nil
}
