package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParse_Valid(t *testing.T) {
	d, err := Parse("123.4567")
	assert.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("123.4567")))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not-a-number")
	assert.ErrorIs(t, err, ErrNotParseable)
}

func TestValidateAmount_Valid(t *testing.T) {
	d, err := ValidateAmount("100.0000")
	assert.NoError(t, err)
	assert.Equal(t, "100.0000", Format(d))
}

func TestValidateAmount_Zero(t *testing.T) {
	_, err := ValidateAmount("0")
	assert.ErrorIs(t, err, ErrNotPositive)
}

func TestValidateAmount_Negative(t *testing.T) {
	_, err := ValidateAmount("-5.0000")
	assert.ErrorIs(t, err, ErrNotPositive)
}

func TestValidateAmount_BelowMinimum(t *testing.T) {
	_, err := ValidateAmount("0.00001")
	assert.Error(t, err)
}

func TestValidateAmount_AtMinimum(t *testing.T) {
	d, err := ValidateAmount("0.0001")
	assert.NoError(t, err)
	assert.True(t, d.Equal(MinAmount))
}

func TestValidateAmount_TooManyIntegerDigits(t *testing.T) {
	_, err := ValidateAmount("1000000000000000.0000")
	assert.ErrorIs(t, err, ErrTooManyIntegerDigits)
}

func TestValidateAmount_NotParseable(t *testing.T) {
	_, err := ValidateAmount("NaN")
	assert.Error(t, err)
}

func TestFormat_ExactlyFourDigits(t *testing.T) {
	d := decimal.RequireFromString("1")
	assert.Equal(t, "1.0000", Format(d))

	d2 := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))
	assert.Equal(t, "0.3000", Format(d2))
}

func TestIntegerDigits(t *testing.T) {
	assert.Equal(t, 1, IntegerDigits(decimal.RequireFromString("0.5")))
	assert.Equal(t, 1, IntegerDigits(decimal.RequireFromString("9.9999")))
	assert.Equal(t, 4, IntegerDigits(decimal.RequireFromString("1000.0000")))
	assert.Equal(t, 3, IntegerDigits(decimal.RequireFromString("-123.0000")))
}

func TestPrecision_NoFloatArtifacts(t *testing.T) {
	a := decimal.RequireFromString("1000.0000")
	b := decimal.RequireFromString("123.4567")

	from := a.Sub(b)
	assert.Equal(t, "876.5433", Format(from))
}
