// Package validate implements the Validator (V): a pure, I/O-free check of
// an incoming transfer request, run before any cache, lock or ledger call.
package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/walletledger/service/internal/apperr"
	"github.com/walletledger/service/pkg/money"
)

const maxIdempotencyKeyBytes = 255

// canonicalWalletID matches the 8-4-4-4-12 hex UUID form, case-insensitive.
var canonicalWalletID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TransferRequest is the raw, unvalidated shape of an incoming transfer.
type TransferRequest struct {
	FromWalletID   string
	ToWalletID     string
	Amount         string
	IdempotencyKey string
}

// Validated is the outcome of a successful Validate call: the parsed,
// still-unrounded amount alongside the request fields a caller already
// trusts to be well-formed.
type Validated struct {
	FromWalletID   string
	ToWalletID     string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Validate applies every structural and semantic rule in order and returns
// the first violation found, categorized for the HTTP adapter.
func Validate(req TransferRequest) (*Validated, error) {
	if strings.TrimSpace(req.FromWalletID) == "" ||
		strings.TrimSpace(req.ToWalletID) == "" ||
		strings.TrimSpace(req.Amount) == "" ||
		strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, apperr.New(apperr.KindInvalidRequest, "fromWalletId, toWalletId, amount and idempotencyKey are all required")
	}

	if len([]byte(req.IdempotencyKey)) > maxIdempotencyKeyBytes {
		return nil, apperr.New(apperr.KindInvalidRequest, "idempotencyKey exceeds 255 octets")
	}

	if strings.EqualFold(req.FromWalletID, req.ToWalletID) {
		return nil, apperr.New(apperr.KindSameWalletTransfer, "fromWalletId and toWalletId must differ")
	}

	if !canonicalWalletID.MatchString(req.FromWalletID) || !canonicalWalletID.MatchString(req.ToWalletID) {
		return nil, apperr.New(apperr.KindInvalidWalletID, "wallet ids must be canonical 8-4-4-4-12 hex identifiers")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "amount must be a positive decimal")
	}

	if amount.LessThan(money.MinAmount) {
		return nil, apperr.Newf(apperr.KindAmountTooSmall, "amount must be at least %s", money.Format(money.MinAmount))
	}

	return &Validated{
		FromWalletID:   req.FromWalletID,
		ToWalletID:     req.ToWalletID,
		Amount:         amount,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}
