// Package command implements the write side of the ledger: the Transfer
// Executor (T), the Failure Recorder (F), and the UseCase that wires both
// behind the Idempotency Coordinator (I).
package command

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walletledger/service/internal/apperr"
	"github.com/walletledger/service/internal/domain/transactionlog"
	"github.com/walletledger/service/internal/domain/transfer"
	"github.com/walletledger/service/internal/domain/wallet"
	"github.com/walletledger/service/internal/services/idempotency"
	"github.com/walletledger/service/pkg/dbtx"
	"github.com/walletledger/service/pkg/mlog"
	"github.com/walletledger/service/pkg/money"
	"github.com/walletledger/service/pkg/otelutil"
)

// DB is the subset of *sql.DB the executor needs to open its own
// transactions, isolated behind an interface so tests can swap it for a
// sqlmock-backed stand-in.
type DB = dbtx.DB

// Executor is the Transfer Executor (T): it owns the PENDING insert, the
// locked debit/credit transaction, and the SUCCESS finalize, implementing
// idempotency.Executor so the Coordinator can drive it.
type Executor struct {
	DB       DB
	Wallets  wallet.Repository
	Logs     transactionlog.Repository
	Logger   mlog.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(db DB, wallets wallet.Repository, logs transactionlog.Repository, logger mlog.Logger) *Executor {
	return &Executor{DB: db, Wallets: wallets, Logs: logs, Logger: logger}
}

// Execute always inserts the PENDING log first, in its own committed
// statement, then drives the locked debit/credit transaction; on any
// failure following the PENDING insert it invokes the failure recorder
// before returning the original error to the caller.
func (e *Executor) Execute(ctx context.Context, fromWalletID, toWalletID string, amount decimal.Decimal, idempotencyKey string) (*transfer.Result, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "command.transfer_executor.execute")
	defer span.End()

	logID := uuid.NewString()
	requestedAt := time.Now().UTC()

	pending := &transactionlog.TransactionLog{
		ID:             logID,
		FromWalletID:   fromWalletID,
		ToWalletID:     toWalletID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		Metadata:       map[string]any{"requestedAt": requestedAt.Format(time.RFC3339Nano)},
	}

	if err := e.Logs.InsertPending(ctx, pending); err != nil {
		otelutil.HandleSpanError(span, "pending insert failed", err)
		return nil, err
	}

	fromBalance, toBalance, err := e.runLockedTransfer(ctx, fromWalletID, toWalletID, amount, idempotencyKey)
	if err != nil {
		e.recordFailure(ctx, idempotencyKey, err)
		otelutil.HandleSpanError(span, "transfer execution failed", err)

		return nil, err
	}

	return &transfer.Result{
		Success:       true,
		TransactionID: logID,
		Message:       transfer.MessageCompleted,
		FromBalance:   money.Format(fromBalance),
		ToBalance:     money.Format(toBalance),
	}, nil
}

// runLockedTransfer performs steps 2-8: the single READ COMMITTED
// transaction that locks both wallets in ascending id order, validates,
// mutates balances, and finalizes the log to SUCCESS.
func (e *Executor) runLockedTransfer(ctx context.Context, fromWalletID, toWalletID string, amount decimal.Decimal, idempotencyKey string) (decimal.Decimal, decimal.Decimal, error) {
	var fromBalance, toBalance decimal.Decimal

	err := dbtx.RunInTransactionWithOptions(ctx, e.DB, dbtx.ReadCommitted, func(txCtx context.Context) error {
		locked, err := e.Wallets.LockTwoForUpdate(txCtx, fromWalletID, toWalletID)
		if err != nil {
			return err
		}

		fromWallet, ok := locked[fromWalletID]
		if !ok {
			return apperr.New(apperr.KindWalletNotFound, "wallet not found: "+fromWalletID)
		}

		toWallet, ok := locked[toWalletID]
		if !ok {
			return apperr.New(apperr.KindWalletNotFound, "wallet not found: "+toWalletID)
		}

		if fromWallet.Balance.LessThan(amount) {
			return apperr.New(apperr.KindInsufficientBalance, "source wallet balance is insufficient for this transfer")
		}

		newFrom := money.Round(fromWallet.Balance.Sub(amount))
		newTo := money.Round(toWallet.Balance.Add(amount))

		if err := e.Wallets.UpdateBalance(txCtx, fromWallet.ID, newFrom, fromWallet.Version); err != nil {
			return err
		}

		if err := e.Wallets.UpdateBalance(txCtx, toWallet.ID, newTo, toWallet.Version); err != nil {
			return err
		}

		completedAt := time.Now().UTC().Format(time.RFC3339Nano)

		if err := e.Logs.FinalizeSuccess(txCtx, idempotencyKey, map[string]any{
			"completedAt":      completedAt,
			"fromBalanceAfter": money.Format(newFrom),
			"toBalanceAfter":   money.Format(newTo),
		}); err != nil {
			return err
		}

		fromBalance, toBalance = newFrom, newTo

		return nil
	})

	return fromBalance, toBalance, err
}

// recordFailure is the Failure Recorder (F): best-effort, logged not
// propagated, skipped for DUPLICATE_REQUEST since that already corresponds
// to a pre-existing log rather than this attempt's PENDING row.
func (e *Executor) recordFailure(ctx context.Context, idempotencyKey string, cause error) {
	if apperr.Is(cause, apperr.KindDuplicateRequest) {
		return
	}

	if markErr := e.Logs.MarkFailed(ctx, idempotencyKey, cause.Error(), map[string]any{
		"failedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}); markErr != nil {
		e.Logger.Warnf("failure recorder could not mark transaction log %s failed: %v", idempotencyKey, markErr)
	}
}

// UseCase is the write-side entry point the HTTP adapter calls: it wires
// the Idempotency Coordinator (I) in front of the Transfer Executor (T).
type UseCase struct {
	Coordinator *idempotency.Coordinator
	Executor    *Executor
}

// NewUseCase builds a UseCase.
func NewUseCase(coordinator *idempotency.Coordinator, executor *Executor) *UseCase {
	return &UseCase{Coordinator: coordinator, Executor: executor}
}

// Transfer runs the full V → I → T → I pipeline for an already-validated
// request (the HTTP adapter runs the Validator before calling this).
func (u *UseCase) Transfer(ctx context.Context, fromWalletID, toWalletID string, amount decimal.Decimal, idempotencyKey string) (*transfer.Result, error) {
	return u.Coordinator.Run(ctx, u.Executor, fromWalletID, toWalletID, amount, idempotencyKey)
}
