// Package domain contains the batch auction competition model: orders,
// solutions, the auction they compete in, scoring and winner selection.
// Everything here is pure and deterministic; no I/O.
package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/autopilot/internal/asset"
)

// OrderUidLen is the byte length of an order uid.
const OrderUidLen = 56

// OrderUid identifies an order: 32-byte digest, 20-byte owner, 4-byte valid_to.
type OrderUid [OrderUidLen]byte

// NewOrderUid assembles a uid from its parts.
func NewOrderUid(digest common.Hash, owner common.Address, validTo uint32) OrderUid {
	var uid OrderUid
	copy(uid[:32], digest[:])
	copy(uid[32:52], owner[:])
	binary.BigEndian.PutUint32(uid[52:], validTo)
	return uid
}

// ParseOrderUid decodes a 0x-prefixed hex uid.
func ParseOrderUid(s string) (OrderUid, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return OrderUid{}, fmt.Errorf("%w: %v", ErrInvalidOrderUid, err)
	}
	if len(raw) != OrderUidLen {
		return OrderUid{}, fmt.Errorf("%w: got %d bytes", ErrInvalidOrderUid, len(raw))
	}
	var uid OrderUid
	copy(uid[:], raw)
	return uid, nil
}

// Owner returns the address that signed the order.
func (u OrderUid) Owner() common.Address {
	return common.BytesToAddress(u[32:52])
}

// ValidTo returns the order expiry as a unix timestamp.
func (u OrderUid) ValidTo() uint32 {
	return binary.BigEndian.Uint32(u[52:])
}

// Compare orders uids byte-wise.
func (u OrderUid) Compare(other OrderUid) int {
	return bytes.Compare(u[:], other[:])
}

// String returns the 0x-hex encoding.
func (u OrderUid) String() string {
	return hexutil.Encode(u[:])
}

// Short returns an abbreviated form for logs and the UI.
func (u OrderUid) Short() string {
	s := u.String()
	return s[:10] + ".." + s[len(s)-6:]
}

// MarshalText implements encoding.TextMarshaler.
func (u OrderUid) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *OrderUid) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderUid(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Side is the order direction.
type Side uint8

const (
	// SideSell orders fix the sell amount.
	SideSell Side = iota
	// SideBuy orders fix the buy amount.
	SideBuy
)

// String returns "sell" or "buy".
func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sell":
		*s = SideSell
	case "buy":
		*s = SideBuy
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, text)
	}
	return nil
}

// Order is a user order as consumed by winner selection. Amounts are
// the signed limits: sell at most SellAmount, buy at least BuyAmount.
type Order struct {
	UID               OrderUid
	SellToken         asset.TokenAddress
	BuyToken          asset.TokenAddress
	Side              Side
	SellAmount        asset.TokenAmount
	BuyAmount         asset.TokenAmount
	PartiallyFillable bool
}

// Pair returns the directed token pair the order trades.
func (o Order) Pair() (asset.DirectedTokenPair, error) {
	return asset.NewDirectedTokenPair(o.SellToken, o.BuyToken)
}

// TargetAmount returns the limit amount fixed by the order side.
func (o Order) TargetAmount() asset.TokenAmount {
	if o.Side == SideBuy {
		return o.BuyAmount
	}
	return o.SellAmount
}

// Validate checks the order's own invariants.
func (o Order) Validate() error {
	if _, err := o.Pair(); err != nil {
		return fmt.Errorf("%w: order %s: %v", ErrInvalidOrder, o.UID.Short(), err)
	}
	if o.SellAmount.IsZero() || o.BuyAmount.IsZero() {
		return fmt.Errorf("%w: order %s has a zero limit amount", ErrInvalidOrder, o.UID.Short())
	}
	return nil
}
