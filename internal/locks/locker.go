package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("coach lock not acquired")

// Locker serializes booking-critical sections per coach. The store-level
// advisory lock inside the transaction remains the correctness guarantee;
// the Redis variant is an optional first gate that sheds contention before
// a transaction is even opened.
type Locker interface {
	WithCoachLock(ctx context.Context, coachID int64, fn func(ctx context.Context) error) error
}

type redisCoachLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCoachLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisCoachLocker{client: client, ttl: ttl}
}

func (l *redisCoachLocker) WithCoachLock(
	ctx context.Context,
	coachID int64,
	fn func(ctx context.Context) error,
) error {
	key := fmt.Sprintf("lock:coach:%d", coachID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire coach lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisCoachLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release coach lock: %w", err)
	}
	return nil
}

type passthroughLocker struct{}

// NewPassthroughLocker is used when Redis is not configured; the database
// advisory lock alone serializes concurrent bookings.
func NewPassthroughLocker() Locker {
	return passthroughLocker{}
}

func (passthroughLocker) WithCoachLock(
	ctx context.Context,
	_ int64,
	fn func(ctx context.Context) error,
) error {
	return fn(ctx)
}
