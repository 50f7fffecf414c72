// Package transactionlog holds the TransactionLog entity, its status state
// machine, and its storage contract.
package transactionlog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the tri-state of a logged transfer attempt. States are
// terminal once SUCCESS or FAILED; PENDING is the only transient state.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// TransactionLog records one attempted transfer, keyed uniquely by its
// caller-supplied idempotencyKey.
type TransactionLog struct {
	ID             string
	FromWalletID   string
	ToWalletID     string
	Amount         decimal.Decimal
	Status         Status
	IdempotencyKey string
	ErrorMessage   *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository is the storage contract for transaction logs.
//
//go:generate mockgen --destination=transactionlog_mock.go --package=transactionlog . Repository
type Repository interface {
	// InsertPending commits a new PENDING log in its own statement/
	// transaction, independent of the caller's main transaction, so it
	// survives a rollback of the debit/credit step.
	// A unique-constraint violation on idempotencyKey surfaces as an
	// apperr of kind DUPLICATE_REQUEST.
	InsertPending(ctx context.Context, log *TransactionLog) error

	// FinalizeSuccess transitions a PENDING row to SUCCESS and merges
	// extraMetadata into its metadata. Must run inside the caller's
	// transaction (ctx carries it via dbtx) so it commits atomically with
	// the balance updates.
	FinalizeSuccess(ctx context.Context, idempotencyKey string, extraMetadata map[string]any) error

	// MarkFailed updates the existing log row for idempotencyKey to
	// status=FAILED, sets errorMessage and merges extraMetadata, in its own
	// committed statement outside any main transaction. It returns an error
	// when no log exists for the key; it does not insert one. Best-effort:
	// callers log, never propagate, its error.
	MarkFailed(ctx context.Context, idempotencyKey string, errorMessage string, extraMetadata map[string]any) error

	// FindByIdempotencyKey returns the log for key, or nil and a nil error
	// when no log exists (callers translate absence themselves).
	FindByIdempotencyKey(ctx context.Context, key string) (*TransactionLog, error)

	// RecentForWallet returns up to limit logs where walletID is either
	// the source or destination, newest first.
	RecentForWallet(ctx context.Context, walletID string, limit int) ([]*TransactionLog, error)
}
