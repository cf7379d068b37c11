package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lock:"

// compare-and-delete / compare-and-pexpire on the owner token
var (
	unlockIfOwner = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("del", KEYS[1])`)

	refreshIfOwner = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then return 0 end
return redis.call("pexpire", KEYS[1], ARGV[2])`)
)

// RedisLock holds lock:<key> with SET NX PX. Each instance carries its own
// owner token, so an expired holder cannot release a successor's lock.
type RedisLock struct {
	rdb   *redis.Client
	key   string
	owner string
	ttl   time.Duration
}

// NewRedisLock returns an unacquired lock on key.
func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{rdb: rdb, key: redisKeyPrefix + key, owner: ownerToken(), ttl: ttl}
}

func ownerToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("owner-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// Acquire makes a single SET NX attempt.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release is a no-op when the key expired or now belongs to someone else.
func (l *RedisLock) Release(ctx context.Context) error {
	if err := unlockIfOwner.Run(ctx, l.rdb, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("redis unlock %s: %w", l.key, err)
	}
	return nil
}

// Extend resets the TTL and reports false when the lock is no longer held.
func (l *RedisLock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := refreshIfOwner.Run(ctx, l.rdb, []string{l.key}, l.owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis extend %s: %w", l.key, err)
	}
	return n == 1, nil
}
