// Package wallet implements wallet.Repository against Postgres.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/walletledger/service/internal/apperr"
	domainwallet "github.com/walletledger/service/internal/domain/wallet"
	"github.com/walletledger/service/pkg/dbtx"
	"github.com/walletledger/service/pkg/otelutil"
)

// Repository is the Postgres-backed wallet.Repository implementation. db is
// typically a dbresolver.DB routing reads to a replica and writes to the
// primary; tests substitute a sqlmock-backed *sql.DB.
type Repository struct {
	db dbtx.Executor
}

// NewRepository builds a Repository over db.
func NewRepository(db dbtx.Executor) *Repository {
	return &Repository{db: db}
}

// Create implements wallet.Repository.
func (r *Repository) Create(ctx context.Context, w *domainwallet.Wallet) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.wallet.create")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	const query = `
		INSERT INTO wallets (id, owner_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`

	_, err := exec.ExecContext(ctx, query, w.ID, w.OwnerID, w.Balance, w.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "wallets_owner_id_key" {
			wrapped := apperr.Wrap(apperr.KindValidationError, "ownerId is already in use by another wallet", err)
			otelutil.HandleSpanError(span, "duplicate owner id", wrapped)

			return wrapped
		}

		otelutil.HandleSpanError(span, "insert wallet failed", err)

		return apperr.Wrap(apperr.KindInternalError, "failed to create wallet", err)
	}

	return nil
}

// FindByID implements wallet.Repository.
func (r *Repository) FindByID(ctx context.Context, id string) (*domainwallet.Wallet, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.wallet.find_by_id")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	const query = `
		SELECT id, owner_id, balance, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`

	w, err := scanWallet(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindWalletNotFound, "wallet not found: "+id)
	}

	if err != nil {
		otelutil.HandleSpanError(span, "find wallet by id failed", err)
		return nil, apperr.Wrap(apperr.KindInternalError, "failed to load wallet", err)
	}

	return w, nil
}

// LockTwoForUpdate implements wallet.Repository. It always issues the
// SELECT ... FOR UPDATE statements in ascending id order, a global
// invariant that prevents lock-cycle deadlocks between two concurrent
// transfers on the same pair of wallets in opposite directions.
func (r *Repository) LockTwoForUpdate(ctx context.Context, idA, idB string) (map[string]*domainwallet.Wallet, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.wallet.lock_two_for_update")
	defer span.End()

	ordered := []string{idA, idB}
	sort.Strings(ordered)

	exec := dbtx.GetExecutor(ctx, r.db)

	const query = `
		SELECT id, owner_id, balance, version, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	result := make(map[string]*domainwallet.Wallet, 2)

	for _, id := range ordered {
		w, err := scanWallet(exec.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			otelutil.HandleSpanError(span, "lock wallet for update failed", err)
			return nil, apperr.Wrap(apperr.KindInternalError, "failed to lock wallet rows", err)
		}

		result[w.ID] = w
	}

	return result, nil
}

// UpdateBalance implements wallet.Repository.
func (r *Repository) UpdateBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "postgres.wallet.update_balance")
	defer span.End()

	exec := dbtx.GetExecutor(ctx, r.db)

	const query = `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`

	res, err := exec.ExecContext(ctx, query, newBalance, id, expectedVersion)
	if err != nil {
		otelutil.HandleSpanError(span, "update wallet balance failed", err)
		return apperr.Wrap(apperr.KindInternalError, "failed to update wallet balance", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		otelutil.HandleSpanError(span, "reading rows affected failed", err)
		return apperr.Wrap(apperr.KindInternalError, "failed to confirm wallet update", err)
	}

	if rows == 0 {
		err := apperr.New(apperr.KindInternalError, "wallet version changed concurrently: "+id)
		otelutil.HandleSpanError(span, "optimistic version check failed", err)

		return err
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*domainwallet.Wallet, error) {
	var w domainwallet.Wallet

	if err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}

	return &w, nil
}
