// Package redislease implements the pipeline's lease capability with Redis
// distributed locks.
package redislease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/galenhq/partner_ingest/internal/config"
	"github.com/galenhq/partner_ingest/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lease:ingest:"

type Leaser struct {
	locker *redislock.Client
}

// New connects to Redis and verifies it is reachable.
func New(ctx context.Context, cfg config.Redis) (*Leaser, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Leaser{locker: redislock.New(client)}, nil
}

// Obtain acquires a time-bounded exclusive lock over the file name. A lock
// held elsewhere maps to the pipeline's skip signal, not an error.
func (l *Leaser) Obtain(ctx context.Context, name string, ttl time.Duration) (pipeline.Lease, error) {
	lock, err := l.locker.Obtain(ctx, keyPrefix+name, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, pipeline.ErrLeaseHeld
	}

	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock: %w", err)
	}

	return &lease{lock: lock}, nil
}

type lease struct {
	lock *redislock.Lock
}

// Release frees the lock. A lock that already expired is not an error; the
// exclusivity window simply ended on its own.
func (l *lease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}

	return err
}
