// Package query implements the Query Surface (Q): read-only balance and
// history lookups that bypass the cache and take no locks.
package query

import (
	"context"

	"github.com/walletledger/service/internal/domain/transactionlog"
	"github.com/walletledger/service/internal/domain/wallet"
	"github.com/walletledger/service/pkg/money"
	"github.com/walletledger/service/pkg/otelutil"
)

const maxHistoryItems = 100

// UseCase is the read-side entry point the HTTP adapter calls.
type UseCase struct {
	Wallets wallet.Repository
	Logs    transactionlog.Repository
}

// NewUseCase builds a UseCase.
func NewUseCase(wallets wallet.Repository, logs transactionlog.Repository) *UseCase {
	return &UseCase{Wallets: wallets, Logs: logs}
}

// GetBalance returns the current balance of walletID as a fixed-point
// string, or an apperr of kind WALLET_NOT_FOUND.
func (u *UseCase) GetBalance(ctx context.Context, walletID string) (string, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "query.get_balance")
	defer span.End()

	w, err := u.Wallets.FindByID(ctx, walletID)
	if err != nil {
		otelutil.HandleSpanError(span, "wallet lookup failed", err)
		return "", err
	}

	return money.Format(w.Balance), nil
}

// GetHistory returns up to 100 recent transaction logs where walletID is
// the source or destination, newest first.
func (u *UseCase) GetHistory(ctx context.Context, walletID string) ([]*transactionlog.TransactionLog, error) {
	ctx, span := otelutil.TracerFromContext(ctx).Start(ctx, "query.get_history")
	defer span.End()

	if _, err := u.Wallets.FindByID(ctx, walletID); err != nil {
		otelutil.HandleSpanError(span, "wallet lookup failed", err)
		return nil, err
	}

	logs, err := u.Logs.RecentForWallet(ctx, walletID, maxHistoryItems)
	if err != nil {
		otelutil.HandleSpanError(span, "history lookup failed", err)
		return nil, err
	}

	return logs, nil
}
