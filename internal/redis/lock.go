package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("channel lock not acquired")
)

// Locker is used by the appointment service to serialize channel number
// allocation for one doctor on one day.
type Locker interface {
	WithChannelLock(ctx context.Context, doctorID, date string, fn func(ctx context.Context) error) error
}

type redisChannelLocker struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
}

// NewRedisChannelLocker creates a locker that uses a per doctor/day Redis key.
// Acquisition is retried up to retries extra times before ErrLockNotAcquired.
func NewRedisChannelLocker(client *redis.Client, ttl time.Duration, retries int) Locker {
	if retries < 0 {
		retries = 0
	}
	return &redisChannelLocker{
		client:  client,
		ttl:     ttl,
		retries: retries,
		backoff: 50 * time.Millisecond,
	}
}

func channelLockKey(doctorID, date string) string {
	return fmt.Sprintf("lock:channel:%s:%s", doctorID, date)
}

func (l *redisChannelLocker) WithChannelLock(ctx context.Context, doctorID, date string, fn func(ctx context.Context) error) error {
	key := channelLockKey(doctorID, date)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		// release with a fresh context so a cancelled request still frees the key
		relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.release(relCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisChannelLocker) acquire(ctx context.Context, key, token string) error {
	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire channel lock: %w", err)
		}
		if ok {
			return nil
		}
		if attempt >= l.retries {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff * time.Duration(attempt+1)):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisChannelLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release channel lock: %w", err)
	}
	return nil
}
