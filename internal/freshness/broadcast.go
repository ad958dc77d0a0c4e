package freshness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "pulsedash.cache.bump"

// Broadcast fans cache invalidations out to other dashboard instances over
// a Redis channel, so one operator's refresh drops every instance's slot.
type Broadcast struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewBroadcast wires a Redis client. An empty channel uses the default.
func NewBroadcast(client *redis.Client, channel string, logger *slog.Logger) *Broadcast {
	if channel == "" {
		channel = defaultChannel
	}
	return &Broadcast{client: client, channel: channel, logger: logger}
}

// Publish announces an invalidation.
func (b *Broadcast) Publish(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	if err := b.client.Publish(ctx, b.channel, "bump").Err(); err != nil {
		return fmt.Errorf("freshness: publish bump: %w", err)
	}
	return nil
}

// Listen blocks on the invalidation channel, calling onBump for each
// message until the context ends.
func (b *Broadcast) Listen(ctx context.Context, onBump func()) {
	if b == nil || b.client == nil {
		return
	}
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if b.logger != nil {
				b.logger.Info("cache invalidation received", slog.String("channel", msg.Channel))
			}
			onBump()
		}
	}
}
