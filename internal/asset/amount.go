package asset

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// TokenAmount is an immutable, non-negative 256-bit quantity of a token
// in its smallest unit. Arithmetic is checked and never wraps.
type TokenAmount struct {
	v uint256.Int
}

// Zero is the zero amount.
var Zero = TokenAmount{}

// NewTokenAmount creates an amount from a uint64 raw value.
func NewTokenAmount(raw uint64) TokenAmount {
	var a TokenAmount
	a.v.SetUint64(raw)
	return a
}

// TokenAmountFromBig converts a big.Int, rejecting negative values and
// values that do not fit in 256 bits.
func TokenAmountFromBig(raw *big.Int) (TokenAmount, error) {
	if raw == nil {
		return TokenAmount{}, ErrInvalidAmount
	}
	if raw.Sign() < 0 {
		return TokenAmount{}, ErrNegativeAmount
	}
	v, overflow := uint256.FromBig(raw)
	if overflow {
		return TokenAmount{}, ErrAmountOverflow
	}
	return TokenAmount{v: *v}, nil
}

// ParseTokenAmount parses a base-10 integer string.
func ParseTokenAmount(s string) (TokenAmount, error) {
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return TokenAmount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return TokenAmountFromBig(raw)
}

// MustParseTokenAmount is ParseTokenAmount that panics on error.
// Intended for constants and tests.
func MustParseTokenAmount(s string) TokenAmount {
	a, err := ParseTokenAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Big returns a copy of the value as big.Int.
func (a TokenAmount) Big() *big.Int {
	return a.v.ToBig()
}

// IsZero returns true if the amount is zero.
func (a TokenAmount) IsZero() bool {
	return a.v.IsZero()
}

// -----------------------------------------------------------------------------
// Arithmetic Operations (checked)
// -----------------------------------------------------------------------------

// Add returns a+b or ErrAmountOverflow.
func (a TokenAmount) Add(b TokenAmount) (TokenAmount, error) {
	var r TokenAmount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return TokenAmount{}, ErrAmountOverflow
	}
	return r, nil
}

// Sub returns a-b or ErrNegativeAmount when b > a.
func (a TokenAmount) Sub(b TokenAmount) (TokenAmount, error) {
	var r TokenAmount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return TokenAmount{}, ErrNegativeAmount
	}
	return r, nil
}

// Mul returns a*b or ErrAmountOverflow.
func (a TokenAmount) Mul(b TokenAmount) (TokenAmount, error) {
	var r TokenAmount
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow {
		return TokenAmount{}, ErrAmountOverflow
	}
	return r, nil
}

// MulDiv returns a*num/den computed at full precision with the given
// rounding. The intermediate product may exceed 256 bits, the result may not.
func (a TokenAmount) MulDiv(num, den TokenAmount, rounding Rounding) (TokenAmount, error) {
	if den.IsZero() {
		return TokenAmount{}, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.Big(), num.Big())
	return TokenAmountFromBig(divRound(product, den.Big(), rounding))
}

// -----------------------------------------------------------------------------
// Comparison Operations
// -----------------------------------------------------------------------------

// Cmp returns -1 if a < b, 0 if a == b, 1 if a > b.
func (a TokenAmount) Cmp(b TokenAmount) int {
	return a.v.Cmp(&b.v)
}

// LessThan returns true if a < b.
func (a TokenAmount) LessThan(b TokenAmount) bool {
	return a.v.Lt(&b.v)
}

// Min returns the smaller of a and b.
func Min(a, b TokenAmount) TokenAmount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b TokenAmount) TokenAmount {
	if a.LessThan(b) {
		return b
	}
	return a
}

// -----------------------------------------------------------------------------
// Boundary Functions (decimal conversion - UI/display only)
// -----------------------------------------------------------------------------

// ToDecimal scales the amount by the token decimals for display.
// This is a BOUNDARY function - use only for UI/display, not calculations.
func (a TokenAmount) ToDecimal(decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(a.Big(), -int32(decimals))
}

// String returns the raw base-10 value.
func (a TokenAmount) String() string {
	return a.v.Dec()
}

// MarshalText encodes the amount as a base-10 string.
func (a TokenAmount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText decodes a base-10 string.
func (a *TokenAmount) UnmarshalText(text []byte) error {
	parsed, err := ParseTokenAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

// divRound divides non-negative num by positive den.
func divRound(num, den *big.Int, rounding Rounding) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if rounding == RoundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
