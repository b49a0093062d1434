package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	qdomain "github.com/corvusHold/courier/internal/queue/domain"
)

// DefaultQueueKey is the list holding pending events.
const DefaultQueueKey = "email:queue"

var _ qdomain.Store = (*RedisStore)(nil)

// incrWithTTL increments KEYS[1] and sets a PEXPIRE of ARGV[1] ms only if the key has none.
var incrWithTTL = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) == -1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisStore implements domain.Store on a single Redis list (LPUSH in, RPOP out)
// plus plain string counters.
type RedisStore struct {
	client *redis.Client
	key    string
	now    qdomain.Clock
}

// NewRedisStore wraps an existing client. The client is shared for the process
// lifetime rather than opened per operation.
func NewRedisStore(client *redis.Client, queueKey string) *RedisStore {
	if queueKey == "" {
		queueKey = DefaultQueueKey
	}
	return &RedisStore{client: client, key: queueKey, now: time.Now}
}

// SetClock overrides the clock used to stamp requeued events.
func (s *RedisStore) SetClock(now qdomain.Clock) { s.now = now }

func (s *RedisStore) Enqueue(ctx context.Context, e qdomain.EmailEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal email event: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push email event to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Dequeue(ctx context.Context) (*qdomain.EmailEvent, error) {
	data, err := s.client.RPop(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop email event from redis: %w", err)
	}
	var e qdomain.EmailEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email event: %w", err)
	}
	return &e, nil
}

func (s *RedisStore) Requeue(ctx context.Context, e qdomain.EmailEvent) error {
	e.RetryCount++
	e.Timestamp = s.now().UnixMilli()
	return s.Enqueue(ctx, e)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s in redis: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrWithTTL.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s in redis: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire %s in redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length from redis: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
