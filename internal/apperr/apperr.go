// Package apperr is the categorized business-error taxonomy for the wallet
// ledger. Every component returns a sum of (result, error) where the error,
// when it matters to the caller, is an *apperr.Error carrying a Kind the
// HTTP adapter maps to a status code. Components never throw/panic for
// expected business outcomes.
package apperr

import "fmt"

// Kind categorizes a business error. The HTTP adapter is the single place
// that maps a Kind to a transport status code.
type Kind string

const (
	KindInvalidRequest       Kind = "INVALID_REQUEST"
	KindInvalidAmount        Kind = "INVALID_AMOUNT"
	KindAmountTooSmall       Kind = "AMOUNT_TOO_SMALL"
	KindInvalidWalletID      Kind = "INVALID_WALLET_ID"
	KindSameWalletTransfer   Kind = "SAME_WALLET_TRANSFER"
	KindInsufficientBalance  Kind = "INSUFFICIENT_BALANCE"
	KindWalletNotFound       Kind = "WALLET_NOT_FOUND"
	KindDuplicateRequest     Kind = "DUPLICATE_REQUEST"
	KindConcurrentProcessing Kind = "CONCURRENT_PROCESSING"
	KindValidationError      Kind = "VALIDATION_ERROR"
	KindTransferFailed       Kind = "TRANSFER_FAILED"
	KindInternalError        Kind = "INTERNAL_ERROR"
)

// httpStatus maps each Kind to the status code fixed by the error handling
// design. Kinds absent from this map fall back to 500.
var httpStatus = map[Kind]int{
	KindInvalidRequest:       400,
	KindInvalidAmount:        400,
	KindAmountTooSmall:       400,
	KindInvalidWalletID:      400,
	KindSameWalletTransfer:   400,
	KindInsufficientBalance:  400,
	KindWalletNotFound:       404,
	KindDuplicateRequest:     409,
	KindConcurrentProcessing: 409,
	KindValidationError:      400,
	KindTransferFailed:       500,
	KindInternalError:        500,
}

// Error is the categorized business error returned by the Validator,
// Idempotency Coordinator, Transfer Executor and Query Surface.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New builds an Error of the given Kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given Kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given Kind, carrying err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Kind)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code this Kind maps to, 500 if unknown.
func (e *Error) HTTPStatus() int {
	if code, ok := httpStatus[e.Kind]; ok {
		return code
	}

	return 500
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error

	as, ok := err.(*Error)
	if !ok {
		return false
	}

	e = as

	return e.Kind == kind
}
