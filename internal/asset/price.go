package asset

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding selects the direction of integer division when a price is
// applied to an amount.
type Rounding uint8

const (
	// RoundDown is used for amounts owed to a trader.
	RoundDown Rounding = iota
	// RoundUp is used for amounts owed by a trader.
	RoundUp
)

// String returns the rounding mode name.
func (r Rounding) String() string {
	if r == RoundUp {
		return "up"
	}
	return "down"
}

// nativePriceScale is the denominator of native prices: a native price is
// the value in wei of 1e18 units of a token.
var nativePriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(EtherDecimals), nil)

// Price is an exact, non-negative rational exchange rate.
type Price struct {
	num *big.Int
	den *big.Int
}

// NewPrice creates num/den. The denominator must be positive and the
// numerator non-negative.
func NewPrice(num, den *big.Int) (Price, error) {
	if num == nil || den == nil {
		return Price{}, ErrInvalidPrice
	}
	if den.Sign() == 0 {
		return Price{}, ErrDivisionByZero
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		return Price{}, ErrNegativeAmount
	}
	return Price{num: new(big.Int).Set(num), den: new(big.Int).Set(den)}, nil
}

// NewPriceFromAmounts creates num/den from two token amounts.
func NewPriceFromAmounts(num, den TokenAmount) (Price, error) {
	return NewPrice(num.Big(), den.Big())
}

// NewNativePrice creates the price of a token in wei from the value of
// 1e18 of its smallest units.
func NewNativePrice(weiPer1e18 TokenAmount) Price {
	return Price{num: weiPer1e18.Big(), den: new(big.Int).Set(nativePriceScale)}
}

// ParsePrice parses "num/den" or a plain integer (denominator 1).
func ParsePrice(s string) (Price, error) {
	numStr, denStr, found := strings.Cut(s, "/")
	if !found {
		denStr = "1"
	}
	num, ok := new(big.Int).SetString(strings.TrimSpace(numStr), 10)
	if !ok {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	den, ok := new(big.Int).SetString(strings.TrimSpace(denStr), 10)
	if !ok {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return NewPrice(num, den)
}

// Num returns a copy of the numerator.
func (p Price) Num() *big.Int {
	if p.num == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(p.num)
}

// Den returns a copy of the denominator.
func (p Price) Den() *big.Int {
	if p.den == nil {
		return big.NewInt(1)
	}
	return new(big.Int).Set(p.den)
}

// Rat returns the price as big.Rat.
func (p Price) Rat() *big.Rat {
	return new(big.Rat).SetFrac(p.Num(), p.Den())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.num == nil || p.num.Sign() == 0
}

// Cmp compares two prices exactly.
func (p Price) Cmp(other Price) int {
	left := new(big.Int).Mul(p.Num(), other.Den())
	right := new(big.Int).Mul(other.Num(), p.Den())
	return left.Cmp(right)
}

// Apply multiplies amount by the price with explicit rounding.
func (p Price) Apply(amount TokenAmount, rounding Rounding) (TokenAmount, error) {
	product := new(big.Int).Mul(amount.Big(), p.Num())
	return TokenAmountFromBig(divRound(product, p.Den(), rounding))
}

// Div returns p/other, the exchange rate between two clearing prices.
func (p Price) Div(other Price) (Price, error) {
	if other.IsZero() {
		return Price{}, ErrDivisionByZero
	}
	return NewPrice(
		new(big.Int).Mul(p.Num(), other.Den()),
		new(big.Int).Mul(p.Den(), other.Num()),
	)
}

// InEth converts a token amount to wei with a native price, rounding down.
func (p Price) InEth(amount TokenAmount) (Ether, error) {
	converted, err := p.Apply(amount, RoundDown)
	if err != nil {
		return Ether{}, err
	}
	return EtherFromAmount(converted), nil
}

// -----------------------------------------------------------------------------
// Boundary Functions
// -----------------------------------------------------------------------------

// ToDecimal approximates the price for display.
// This is a BOUNDARY function - use only for UI/display, not calculations.
func (p Price) ToDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(p.Num(), 0).DivRound(decimal.NewFromBigInt(p.Den(), 0), 18)
}

// String returns "num/den".
func (p Price) String() string {
	return p.Num().String() + "/" + p.Den().String()
}

// MarshalText encodes the price as "num/den".
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes "num/den" or a plain integer.
func (p *Price) UnmarshalText(text []byte) error {
	parsed, err := ParsePrice(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
