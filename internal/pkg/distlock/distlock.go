// Package distlock provides short-lived mutual exclusion across engine
// replicas, keyed by a string such as an enrollment id.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by WithLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock held by another holder")

// DistLock is the interface for distributed locking.
// A lock instance belongs to one caller; concurrent callers need their own
// instance from a Factory.
type DistLock interface {
	// Acquire tries to acquire the lock without blocking.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory hands out a fresh lock per key.
type Factory interface {
	Lock(key string) DistLock
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(key string) DistLock

func (f FactoryFunc) Lock(key string) DistLock { return f(key) }

// NewFactory picks the best available backend. Redis is preferred; with no
// Redis client the factory falls back to PostgreSQL advisory locks, and with
// neither it returns nil (callers run unlocked).
func NewFactory(redisClient *redis.Client, db *sql.DB, prefix string, ttl time.Duration) Factory {
	switch {
	case redisClient != nil:
		return FactoryFunc(func(key string) DistLock {
			return NewRedisLock(redisClient, prefix+key, ttl)
		})
	case db != nil:
		return FactoryFunc(func(key string) DistLock {
			return NewPGAdvisoryLock(db, prefix+key)
		})
	}
	return nil
}

// WithLock runs fn while holding lock. It returns ErrNotAcquired without
// calling fn if the lock is taken. Release errors are returned only when fn
// succeeded.
func WithLock(ctx context.Context, lock DistLock, fn func() error) (err error) {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		// release even if ctx was cancelled mid-operation
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if rerr := lock.Release(relCtx); rerr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", rerr)
		}
	}()
	return fn()
}

// PGAdvisoryLock implements DistLock using session-scoped PostgreSQL
// advisory locks. The session is pinned to one pooled connection between
// Acquire and Release, and the lock goes away if that connection drops.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock derives a deterministic lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire calls pg_try_advisory_lock, which returns immediately.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks and returns the pinned connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
