package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "transaction_events:"

// RedisBus fans events out through redis pub/sub, one channel per user, so
// every server instance sees every write.
type RedisBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log}
}

func channel(userID string) string {
	return channelPrefix + userID
}

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channel(e.UserID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	sub := b.rdb.Subscribe(ctx, channel(userID))
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}
			select {
			case out <- e:
			default:
				b.log.Warn().Str("user_id", userID).Msg("subscriber too slow, dropping event")
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}
