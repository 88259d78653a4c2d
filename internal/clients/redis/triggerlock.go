package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
)

// TriggerLock deduplicates deep-dive triggers across instances. The client-side
// controller already refuses a second trigger while one is live, but nothing
// stops two tabs (or two replicas) from racing the same brief. A short-lived
// SETNX key closes that window server-side.
type TriggerLock interface {
	Acquire(ctx context.Context, briefID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, briefID uuid.UUID) error
	Close() error
}

type triggerLock struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewTriggerLock(log *logger.Logger, addr string) (TriggerLock, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &triggerLock{
		log: log.With("service", "DeepDiveTriggerLock"),
		rdb: rdb,
	}, nil
}

func lockKey(briefID uuid.UUID) string {
	return "deepdive:trigger:" + briefID.String()
}

func (l *triggerLock) Acquire(ctx context.Context, briefID uuid.UUID, ttl time.Duration) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("trigger lock not initialized")
	}
	if briefID == uuid.Nil {
		return false, fmt.Errorf("missing brief id")
	}
	ok, err := l.rdb.SetNX(ctx, lockKey(briefID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *triggerLock) Release(ctx context.Context, briefID uuid.UUID) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, lockKey(briefID)).Err()
}

func (l *triggerLock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
