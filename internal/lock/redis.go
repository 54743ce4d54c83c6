package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still carries our token, so
// a holder whose lease expired cannot release someone else's lock.
var unlockScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// ErrLockUnavailable is returned when Redis cannot be reached.
var ErrLockUnavailable = errors.New("lock: backend unavailable")

// Redis implements Locker with SET NX PX leases so that several API
// instances share the same critical sections. TTL must exceed the
// longest booking transaction.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, retry: 25 * time.Millisecond, prefix: "lock:"}
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	return lockAll(ctx, keys, r.acquire)
}

func (r *Redis) acquire(ctx context.Context, key string) (func(), error) {
	key = r.prefix + key
	token := uuid.NewString()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Join(ErrLockUnavailable, err)
		}
		if ok {
			return func() {
				// Release even when the request context is already done.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = unlockScript.Run(rctx, r.rdb, []string{key}, token).Err()
			}, nil
		}
		t := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
