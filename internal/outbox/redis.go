package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/mail"
)

// RedisOutbox queues messages on a Redis list. Producers LPUSH, the worker BRPOPs,
// so messages leave in the order they were queued.
type RedisOutbox struct {
	client *redis.Client
	key    string
}

// NewRedisOutbox builds an outbox on the given list key.
func NewRedisOutbox(client *redis.Client, key string) *RedisOutbox {
	return &RedisOutbox{client: client, key: key}
}

// Enqueue pushes msg onto the list.
func (o *RedisOutbox) Enqueue(ctx context.Context, msg mail.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbox message: %w", err)
	}
	if err := o.client.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("push outbox message: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next message. It returns nil, nil on timeout.
func (o *RedisOutbox) Dequeue(ctx context.Context, timeout time.Duration) (*mail.Message, error) {
	result, err := o.client.BRPop(ctx, timeout, o.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP replies with [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(result))
	}

	var msg mail.Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode outbox message: %w", err)
	}
	return &msg, nil
}

// Len reports the number of queued messages.
func (o *RedisOutbox) Len(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, o.key).Result()
}
