// Package idempotency implements the Idempotency Coordinator (I): the
// three-tier dedup check and mutex lease lifecycle wrapped around every
// transfer attempt.
package idempotency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walletledger/service/internal/apperr"
	"github.com/walletledger/service/internal/domain/transactionlog"
	"github.com/walletledger/service/internal/domain/transfer"
	"github.com/walletledger/service/pkg/mlog"
	"github.com/walletledger/service/pkg/mretry"
)

// Lease is a held tier-2 mutex lease. Release is best-effort; the lease's
// TTL is the correctness backstop.
type Lease interface {
	Release(ctx context.Context) error
}

// Cache is the Cache/Lock Store (C) contract the Coordinator needs: a
// result cache (tier 1) and a distributed mutex lease (tier 2).
//
//go:generate mockgen --destination=cache_mock.go --package=idempotency . Cache
type Cache interface {
	// GetResult returns a previously cached result for key. ok is false on
	// a clean miss; err is non-nil only on a genuine cache-backend error
	// (callers treat that as a miss too, per the fail-open policy).
	GetResult(ctx context.Context, key string) (result *transfer.Result, ok bool, err error)

	// SetResult stores result under key for ttl. Failure is logged by the
	// caller, never propagated.
	SetResult(ctx context.Context, key string, result *transfer.Result, ttl time.Duration) error

	// AcquireLease attempts to take the tier-2 mutex for key, retrying per
	// cfg. acquired=false with err=nil means the retry budget was
	// exhausted because another holder exists (not a cache failure); a
	// non-nil err means the cache backend itself failed (fail-open: the
	// caller proceeds as if the lease were held).
	AcquireLease(ctx context.Context, key string, ttl time.Duration, cfg mretry.Config) (lease Lease, acquired bool, err error)
}

// Executor runs the Transfer Executor (T) for a validated request and
// returns its result. Defined here, not imported from the command package,
// to avoid a cycle: the command package depends on idempotency, not the
// other way around.
type Executor interface {
	Execute(ctx context.Context, fromWalletID, toWalletID string, amount decimal.Decimal, idempotencyKey string) (*transfer.Result, error)
}

// Coordinator orchestrates the cache lookup, lease acquire, ledger
// fallback lookup, executor call, cache store and lease release around
// every transfer attempt.
type Coordinator struct {
	Cache         Cache
	LogRepo       transactionlog.Repository
	Logger        mlog.Logger
	CacheTTL      time.Duration
	LeaseTTL      time.Duration
	LeaseRetryCfg mretry.Config
	KeyPrefix     string
}

// idempotencyCacheKey and leaseKey build the namespaced cache key layout.
func (c *Coordinator) idempotencyCacheKey(key string) string {
	return c.KeyPrefix + "idempotency:" + key
}

func (c *Coordinator) leaseKey(key string) string {
	return c.KeyPrefix + "lock:" + key
}

// Run executes the full idempotency-guarded transfer: cache lookup, lease
// acquisition, ledger fallback lookup, delegating the actual debit/credit
// to exec, then cache population and lease release on every exit path.
func (c *Coordinator) Run(ctx context.Context, exec Executor, fromWalletID, toWalletID string, amount decimal.Decimal, idempotencyKey string) (*transfer.Result, error) {
	cacheKey := c.idempotencyCacheKey(idempotencyKey)

	if cached, ok, err := c.Cache.GetResult(ctx, cacheKey); err != nil {
		c.Logger.Warnf("idempotency cache lookup failed, treating as miss: %v", err)
	} else if ok {
		replay := *cached
		replay.Message += transfer.MessageCacheReplaySuffix

		return &replay, nil
	}

	lease, acquired, err := c.Cache.AcquireLease(ctx, c.leaseKey(idempotencyKey), c.LeaseTTL, c.LeaseRetryCfg)
	if err != nil {
		c.Logger.Warnf("idempotency lease backend failed, failing open: %v", err)
	} else if !acquired {
		return c.resolveViaLedger(ctx, idempotencyKey)
	} else {
		defer func() {
			if releaseErr := lease.Release(ctx); releaseErr != nil {
				c.Logger.Warnf("failed to release idempotency lease for %s: %v", idempotencyKey, releaseErr)
			}
		}()
	}

	if existing, err := c.LogRepo.FindByIdempotencyKey(ctx, idempotencyKey); err == nil && existing != nil {
		return c.replayFromLog(ctx, existing, cacheKey)
	}

	result, err := exec.Execute(ctx, fromWalletID, toWalletID, amount, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if setErr := c.Cache.SetResult(ctx, cacheKey, result, c.CacheTTL); setErr != nil {
		c.Logger.Warnf("failed to cache transfer result for %s: %v", idempotencyKey, setErr)
	}

	return result, nil
}

// resolveViaLedger is the tier-2 exhausted-budget fallback: look the key up
// directly in the ledger and either replay its terminal result or fail
// CONCURRENT_PROCESSING.
func (c *Coordinator) resolveViaLedger(ctx context.Context, idempotencyKey string) (*transfer.Result, error) {
	existing, err := c.LogRepo.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil || existing == nil || existing.Status == transactionlog.StatusPending {
		return nil, apperr.New(apperr.KindConcurrentProcessing, "another request is currently processing this idempotency key")
	}

	return c.replayFromLog(ctx, existing, c.idempotencyCacheKey(idempotencyKey))
}

// replayFromLog reconstructs a transfer.Result from an existing log row and
// backfills the cache when the log is SUCCESS; PENDING and FAILED replays
// are not cached.
func (c *Coordinator) replayFromLog(ctx context.Context, log *transactionlog.TransactionLog, cacheKey string) (*transfer.Result, error) {
	switch log.Status {
	case transactionlog.StatusPending:
		return &transfer.Result{Success: false, TransactionID: log.ID, Message: transfer.MessagePendingReplay}, nil
	case transactionlog.StatusFailed:
		return &transfer.Result{Success: false, TransactionID: log.ID, Message: transfer.MessageFailedReplay}, nil
	case transactionlog.StatusSuccess:
		result := successResultFromMetadata(log)

		if setErr := c.Cache.SetResult(ctx, cacheKey, result, c.CacheTTL); setErr != nil {
			c.Logger.Warnf("failed to backfill idempotency cache for %s: %v", log.IdempotencyKey, setErr)
		}

		return result, nil
	default:
		return nil, apperr.Newf(apperr.KindInternalError, "transaction log %s has unknown status %q", log.ID, log.Status)
	}
}

func successResultFromMetadata(log *transactionlog.TransactionLog) *transfer.Result {
	fromBalance, _ := log.Metadata["fromBalanceAfter"].(string)
	toBalance, _ := log.Metadata["toBalanceAfter"].(string)

	return &transfer.Result{
		Success:       true,
		TransactionID: log.ID,
		Message:       transfer.MessageLedgerReplay,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}
}
