// Package asset provides the exact-precision primitives of an auction:
// token addresses, 256-bit token amounts, signed ether values and
// rational prices. The core uses integer math only.
// decimal.Decimal is only used at boundaries (UI, parsing, display).
package asset

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// TokenAddress identifies an ERC20 token (or the native token placeholder).
type TokenAddress struct {
	common.Address
}

// NativeToken is the placeholder address orders use for the chain's native coin.
var NativeToken = HexToToken("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// NewTokenAddress wraps a go-ethereum address.
func NewTokenAddress(addr common.Address) TokenAddress {
	return TokenAddress{Address: addr}
}

// HexToToken parses a hex address. Invalid input yields the zero address,
// matching common.HexToAddress.
func HexToToken(s string) TokenAddress {
	return TokenAddress{Address: common.HexToAddress(s)}
}

// Compare orders addresses byte-wise. Returns -1, 0 or 1.
func (t TokenAddress) Compare(other TokenAddress) int {
	return bytes.Compare(t.Address[:], other.Address[:])
}

// Less reports whether t sorts before other.
func (t TokenAddress) Less(other TokenAddress) bool {
	return t.Compare(other) < 0
}

// IsNative reports whether t is the native token placeholder.
func (t TokenAddress) IsNative() bool {
	return t == NativeToken
}

// AsERC20 maps the native token placeholder to its wrapped ERC20 token.
func (t TokenAddress) AsERC20(wrapped TokenAddress) TokenAddress {
	if t.IsNative() {
		return wrapped
	}
	return t
}
