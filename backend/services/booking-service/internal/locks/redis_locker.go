package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

// ErrLockTimeout is returned when a redis lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock: timed out waiting for key")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between processes with SET NX PX.
// Each holder writes a random token so it can only delete its own lock.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
	maxWait   time.Duration
}

// NewRedisLocker returns a locker whose keys expire after ttl and whose
// Lock gives up after maxWait. Zero values pick defaults.
func NewRedisLocker(client *redis.Client, ttl, maxWait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if maxWait <= 0 {
		maxWait = ttl
	}
	return &RedisLocker{client: client, ttl: ttl, retryWait: defaultRetryWait, maxWait: maxWait}
}

func (l *RedisLocker) key(name string) string {
	return fmt.Sprintf("locks:%s", name)
}

func (l *RedisLocker) Lock(ctx context.Context, name string) (func(), error) {
	key := l.key(name)
	token := uuid.NewString()
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", name, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		}
		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// Released on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}
