package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals of the native currency.
const EtherDecimals = 18

// maxMagnitude is 2^256 - 1.
var maxMagnitude = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Ether is a signed amount of the native currency in wei, used for gas
// costs, objective values and rewards. The magnitude is bounded to 256 bits.
type Ether struct {
	wei *big.Int
}

// NewEther creates an Ether value from wei.
func NewEther(wei *big.Int) (Ether, error) {
	if wei == nil {
		return Ether{}, ErrInvalidAmount
	}
	if new(big.Int).Abs(wei).Cmp(maxMagnitude) > 0 {
		return Ether{}, ErrAmountOverflow
	}
	return Ether{wei: new(big.Int).Set(wei)}, nil
}

// EtherFromWei creates an Ether value from an int64 wei amount.
func EtherFromWei(wei int64) Ether {
	return Ether{wei: big.NewInt(wei)}
}

// EtherFromAmount reinterprets a native-token amount as Ether.
func EtherFromAmount(a TokenAmount) Ether {
	return Ether{wei: a.Big()}
}

// Wei returns a copy of the value in wei.
func (e Ether) Wei() *big.Int {
	if e.wei == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(e.wei)
}

// Rat returns the value as an exact rational.
func (e Ether) Rat() *big.Rat {
	return new(big.Rat).SetInt(e.Wei())
}

// Sign returns -1, 0 or 1.
func (e Ether) Sign() int {
	if e.wei == nil {
		return 0
	}
	return e.wei.Sign()
}

// Cmp compares two Ether values.
func (e Ether) Cmp(other Ether) int {
	return e.Wei().Cmp(other.Wei())
}

// Add returns e+other or ErrAmountOverflow.
func (e Ether) Add(other Ether) (Ether, error) {
	return NewEther(new(big.Int).Add(e.Wei(), other.Wei()))
}

// Sub returns e-other or ErrAmountOverflow.
func (e Ether) Sub(other Ether) (Ether, error) {
	return NewEther(new(big.Int).Sub(e.Wei(), other.Wei()))
}

// Neg returns -e.
func (e Ether) Neg() Ether {
	return Ether{wei: new(big.Int).Neg(e.Wei())}
}

// ToAmount converts a non-negative value back to a TokenAmount.
func (e Ether) ToAmount() (TokenAmount, error) {
	return TokenAmountFromBig(e.Wei())
}

// ToDecimal returns the value in ETH units.
// This is a BOUNDARY function - use only for UI/display, not calculations.
func (e Ether) ToDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(e.Wei(), -EtherDecimals)
}

// String returns a human-readable representation (e.g., "0.5 ETH").
func (e Ether) String() string {
	return e.ToDecimal().String() + " ETH"
}
