package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	e := New(KindInsufficientBalance, "balance 10.0000 below requested 20.0000")
	assert.Equal(t, "balance 10.0000 below requested 20.0000", e.Error())
}

func TestError_Error_FallsBackToCause(t *testing.T) {
	cause := errors.New("constraint violation")
	e := Wrap(KindDuplicateRequest, "", cause)
	assert.Equal(t, "constraint violation", e.Error())
}

func TestError_Error_FallsBackToKind(t *testing.T) {
	e := &Error{Kind: KindInternalError}
	assert.Equal(t, "INTERNAL_ERROR", e.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := Wrap(KindInternalError, "wrapped", cause)

	assert.ErrorIs(t, e, cause)
}

func TestError_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
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

	for kind, status := range cases {
		e := New(kind, "x")
		assert.Equal(t, status, e.HTTPStatus())
	}
}

func TestError_HTTPStatus_UnknownKindDefaultsTo500(t *testing.T) {
	e := New(Kind("NOT_A_REAL_KIND"), "x")
	assert.Equal(t, 500, e.HTTPStatus())
}

func TestIs(t *testing.T) {
	e := New(KindWalletNotFound, "not found")

	assert.True(t, Is(e, KindWalletNotFound))
	assert.False(t, Is(e, KindInsufficientBalance))
	assert.False(t, Is(errors.New("plain"), KindWalletNotFound))
}
