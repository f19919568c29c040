package asset

import "fmt"

// DirectedTokenPair is an ordered (sell, buy) pair of distinct tokens.
// Selling A for B is a different pair than selling B for A.
type DirectedTokenPair struct {
	sell TokenAddress
	buy  TokenAddress
}

// NewDirectedTokenPair validates sell != buy.
func NewDirectedTokenPair(sell, buy TokenAddress) (DirectedTokenPair, error) {
	if sell == buy {
		return DirectedTokenPair{}, fmt.Errorf("%w: %s", ErrInvalidTokenPair, sell.Hex())
	}
	return DirectedTokenPair{sell: sell, buy: buy}, nil
}

// Sell returns the token being sold.
func (p DirectedTokenPair) Sell() TokenAddress {
	return p.sell
}

// Buy returns the token being bought.
func (p DirectedTokenPair) Buy() TokenAddress {
	return p.buy
}

// Reverse returns the pair in the opposite direction.
func (p DirectedTokenPair) Reverse() DirectedTokenPair {
	return DirectedTokenPair{sell: p.buy, buy: p.sell}
}

// Compare orders pairs by sell token, then buy token.
func (p DirectedTokenPair) Compare(other DirectedTokenPair) int {
	if c := p.sell.Compare(other.sell); c != 0 {
		return c
	}
	return p.buy.Compare(other.buy)
}

// String returns "sell->buy".
func (p DirectedTokenPair) String() string {
	return p.sell.Hex() + "->" + p.buy.Hex()
}
