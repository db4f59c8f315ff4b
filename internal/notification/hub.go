// AngelaMos | 2026
// hub.go

package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans change signals out to the subscribers of one user. A signal
// carries no payload; receivers re-read their sources.
type Hub interface {
	Publish(ctx context.Context, userID string) error
	Subscribe(ctx context.Context, userID string) (<-chan struct{}, func(), error)
}

type RedisHub struct {
	client *redis.Client
	prefix string
}

func NewRedisHub(client *redis.Client, prefix string) *RedisHub {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisHub{client: client, prefix: prefix}
}

func (h *RedisHub) channel(userID string) string {
	return h.prefix + ":" + userID
}

func (h *RedisHub) Publish(ctx context.Context, userID string) error {
	if err := h.client.Publish(ctx, h.channel(userID), "changed").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe returns a channel that holds at most one pending signal, so a
// burst of changes collapses into a single re-read.
func (h *RedisHub) Subscribe(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	ps := h.client.Subscribe(ctx, h.channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close() //nolint:errcheck // subscription never became active
		return nil, nil, fmt.Errorf("subscribe %s: %w", userID, err)
	}

	signals := make(chan struct{}, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(signals)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close() //nolint:errcheck // best-effort unsubscribe
			wg.Wait()
		})
	}
	return signals, cancel, nil
}
