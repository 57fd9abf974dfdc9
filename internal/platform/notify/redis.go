package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/usecase"
	"cliente_backend/internal/platform/metrics"
)

// RedisNotifier publishes change events on a per-owner Redis Pub/Sub channel,
// so that every API instance sharing the Redis server sees every change.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

var _ usecase.ChangeNotifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a RedisNotifier. If prefix is empty, it uses "clientes:changes".
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = "clientes:changes"
	}
	return &RedisNotifier{client: client, prefix: prefix}
}

// channel returns the Pub/Sub channel for an owner.
func (n *RedisNotifier) channel(ownerID string) string {
	return fmt.Sprintf("%s:%s", n.prefix, ownerID)
}

// Publish sends ev to the owner's channel.
func (n *RedisNotifier) Publish(ctx context.Context, ev entity.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel(ev.OwnerID), data).Err(); err != nil {
		metrics.RecordChangePublish("redis", "error")
		return err
	}
	metrics.RecordChangePublish("redis", "success")
	return nil
}

// Subscribe listens on the owner's channel. The subscription is confirmed before returning.
func (n *RedisNotifier) Subscribe(ctx context.Context, ownerID string) (<-chan entity.ChangeEvent, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", n.channel(ownerID), err)
	}

	out := make(chan entity.ChangeEvent, 1)
	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				release()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev entity.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, release, nil
}
