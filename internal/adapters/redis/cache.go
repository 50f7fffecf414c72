// Package redis implements the idempotency.Cache contract against the
// Cache/Lock Store (C): go-redis for the tier-1 result cache, redsync for
// the tier-2 distributed mutex lease.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/walletledger/service/internal/domain/transfer"
	"github.com/walletledger/service/internal/services/idempotency"
	"github.com/walletledger/service/pkg/mretry"
	"github.com/walletledger/service/pkg/otelutil"
)

// CacheRepository implements idempotency.Cache.
type CacheRepository struct {
	Client  *goredislib.Client
	redsync *redsync.Redsync
}

// NewCacheRepository builds a CacheRepository backed by client.
func NewCacheRepository(client *goredislib.Client) *CacheRepository {
	pool := goredis.NewPool(client)

	return &CacheRepository{
		Client:  client,
		redsync: redsync.New(pool),
	}
}

// GetResult implements idempotency.Cache.
func (r *CacheRepository) GetResult(ctx context.Context, key string) (*transfer.Result, bool, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "redis.get_result")
	defer span.End()

	raw, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, goredislib.Nil) {
		return nil, false, nil
	}

	if err != nil {
		otelutil.HandleSpanError(span, "redis get failed", err)
		return nil, false, err
	}

	var result transfer.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		otelutil.HandleSpanError(span, "cached result unmarshal failed", err)
		return nil, false, err
	}

	return &result, true, nil
}

// SetResult implements idempotency.Cache.
func (r *CacheRepository) SetResult(ctx context.Context, key string, result *transfer.Result, ttl time.Duration) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "redis.set_result")
	defer span.End()

	raw, err := json.Marshal(result)
	if err != nil {
		otelutil.HandleSpanError(span, "result marshal failed", err)
		return err
	}

	if err := r.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		otelutil.HandleSpanError(span, "redis set failed", err)
		return err
	}

	return nil
}

// redsyncLease adapts a *redsync.Mutex to idempotency.Lease.
type redsyncLease struct {
	mutex *redsync.Mutex
}

func (l *redsyncLease) Release(ctx context.Context) error {
	_, err := l.mutex.UnlockContext(ctx)
	return err
}

// AcquireLease implements idempotency.Cache. acquired=false, err=nil means
// cfg.MaxRetries attempts were exhausted because another holder exists;
// err!=nil means the cache backend failed (callers fail open).
func (r *CacheRepository) AcquireLease(ctx context.Context, key string, ttl time.Duration, cfg mretry.Config) (idempotency.Lease, bool, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "redis.acquire_lease")
	defer span.End()

	mutex := r.redsync.NewMutex(
		key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		err := mutex.LockContext(ctx)
		if err == nil {
			return &redsyncLease{mutex: mutex}, true, nil
		}

		if !isLockContention(err) {
			otelutil.HandleSpanError(span, "lease backend failure", err)
			return nil, false, err
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(cfg.InitialBackoff):
		}
	}

	return nil, false, nil
}

// isLockContention reports whether err means the lock is simply held by
// another holder (redsync.ErrTaken when a quorum of nodes already holds the
// key, or redsync.ErrFailed when quorum isn't reached), as opposed to the
// cache backend itself failing. Only the former is expected and drives the
// retry loop; the latter triggers the fail-open policy.
func isLockContention(err error) bool {
	var taken *redsync.ErrTaken

	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}
