// Package wallet holds the Wallet entity and its storage contract.
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the authoritative record of an internally-managed account's
// balance. Balances are never mutated in place by application code outside
// the Transfer Executor's locked transaction.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the storage contract for wallets. Implementations must
// honor the dbtx transaction-in-context convention: when ctx carries a
// transaction, methods participate in it instead of opening their own.
//
//go:generate mockgen --destination=wallet_mock.go --package=wallet . Repository
type Repository interface {
	// Create inserts a new wallet. Returns an apperr of kind
	// VALIDATION_ERROR on an ownerId uniqueness violation and of kind
	// INTERNAL_ERROR on any other insert failure.
	Create(ctx context.Context, w *Wallet) error

	// FindByID returns the wallet with the given id, or an apperr of kind
	// WALLET_NOT_FOUND.
	FindByID(ctx context.Context, id string) (*Wallet, error)

	// LockTwoForUpdate locks both wallet rows FOR UPDATE in ascending id
	// order and returns them keyed by id. Missing rows are simply absent
	// from the returned map; callers perform the existence check. Must be
	// called inside a transaction (ctx must carry one via dbtx).
	LockTwoForUpdate(ctx context.Context, idA, idB string) (map[string]*Wallet, error)

	// UpdateBalance writes a new balance and bumps version by 1 on the
	// wallet identified by id, inside the transaction in ctx.
	UpdateBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error
}
