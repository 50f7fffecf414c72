// Package money fixes the fixed-point decimal contract for every balance
// and amount in the ledger: exactly 4 fractional digits, up to 15 integer
// digits, never a float64 on the arithmetic path.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the fixed number of fractional digits every stored and returned
// amount carries.
const Scale = 4

// MinAmount is the smallest strictly-positive transferable amount.
var MinAmount = decimal.New(1, -Scale) // 0.0001

// MaxIntegerDigits bounds the integer part of a balance to stay within the
// wallets.balance column's (19,4) precision.
const MaxIntegerDigits = 15

// ErrNotParseable is returned when the input string isn't a valid decimal.
var ErrNotParseable = errors.New("money: amount is not a parseable decimal")

// ErrNotPositive is returned when an amount is zero or negative.
var ErrNotPositive = errors.New("money: amount must be positive")

// ErrTooManyIntegerDigits is returned when the integer part overflows the
// column's precision.
var ErrTooManyIntegerDigits = errors.New("money: amount has too many integer digits")

// Parse parses s as a decimal amount, rejecting anything that isn't a
// finite, parseable number. It does not enforce positivity or minimums;
// callers apply those checks explicitly so the error Kind can be chosen
// precisely (INVALID_AMOUNT vs AMOUNT_TOO_SMALL).
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrNotParseable
	}

	return d, nil
}

// ValidateAmount applies the full amount contract: parseable, strictly
// positive, not below MinAmount, and within the integer-digit bound.
func ValidateAmount(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if !d.IsPositive() {
		return decimal.Decimal{}, ErrNotPositive
	}

	if d.LessThan(MinAmount) {
		return decimal.Decimal{}, fmt.Errorf("money: amount below minimum %s", MinAmount.StringFixed(Scale))
	}

	if IntegerDigits(d) > MaxIntegerDigits {
		return decimal.Decimal{}, ErrTooManyIntegerDigits
	}

	return d, nil
}

// IntegerDigits returns the number of digits in d's integer part.
func IntegerDigits(d decimal.Decimal) int {
	whole := d.Truncate(0).Abs()
	if whole.IsZero() {
		return 1
	}

	return len(whole.String())
}

// Format re-serializes d with exactly Scale fractional digits, per the
// determinism-of-precision property.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Round rounds d to Scale fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}
