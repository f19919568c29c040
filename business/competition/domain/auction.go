package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/fd1az/autopilot/internal/asset"
)

// AuctionID identifies an auction.
type AuctionID int64

// Auction is the read-only context of one batch: the orders in play, the
// external native prices and the fee policies. Updates return a copy.
type Auction struct {
	id            AuctionID
	block         uint64
	orders        map[OrderUid]Order
	prices        map[asset.TokenAddress]asset.Price
	fees          map[OrderUid][]FeePolicy
	deadline      time.Time
	wrappedNative asset.TokenAddress
}

// AuctionParams are the inputs of NewAuction.
type AuctionParams struct {
	ID            AuctionID
	Block         uint64
	Orders        []Order
	NativePrices  map[asset.TokenAddress]asset.Price
	FeePolicies   map[OrderUid][]FeePolicy
	Deadline      time.Time
	WrappedNative asset.TokenAddress // prices the native token when it has no entry of its own
}

// NewAuction validates and builds an auction.
func NewAuction(p AuctionParams) (*Auction, error) {
	a := &Auction{
		id:            p.ID,
		block:         p.Block,
		orders:        make(map[OrderUid]Order, len(p.Orders)),
		prices:        maps.Clone(p.NativePrices),
		fees:          make(map[OrderUid][]FeePolicy, len(p.FeePolicies)),
		deadline:      p.Deadline,
		wrappedNative: p.WrappedNative,
	}
	if a.prices == nil {
		a.prices = map[asset.TokenAddress]asset.Price{}
	}

	for _, o := range p.Orders {
		if _, dup := a.orders[o.UID]; dup {
			return nil, fmt.Errorf("%w: duplicate order %s", ErrInvalidAuction, o.UID.Short())
		}
		if err := o.Validate(); err != nil {
			return nil, err
		}
		a.orders[o.UID] = o
	}

	for uid, policies := range p.FeePolicies {
		if _, ok := a.orders[uid]; !ok {
			return nil, fmt.Errorf("%w: fee policy for unknown order %s", ErrInvalidAuction, uid.Short())
		}
		for _, fp := range policies {
			if err := fp.Validate(); err != nil {
				return nil, err
			}
		}
		a.fees[uid] = slices.Clone(policies)
	}

	return a, nil
}

// ID returns the auction id.
func (a *Auction) ID() AuctionID { return a.id }

// Block returns the block the auction was cut at.
func (a *Auction) Block() uint64 { return a.block }

// Deadline returns the time by which solutions must be in.
func (a *Auction) Deadline() time.Time { return a.deadline }

// Order looks up an order by uid.
func (a *Auction) Order(uid OrderUid) (Order, bool) {
	o, ok := a.orders[uid]
	return o, ok
}

// Orders returns all orders sorted by uid.
func (a *Auction) Orders() []Order {
	out := slices.Collect(maps.Values(a.orders))
	slices.SortFunc(out, func(x, y Order) int { return x.UID.Compare(y.UID) })
	return out
}

// OrderCount returns the number of orders.
func (a *Auction) OrderCount() int { return len(a.orders) }

// NativePrice returns the external price of a token in wei per 1e18 units.
// The native token falls back to the wrapped native price.
func (a *Auction) NativePrice(token asset.TokenAddress) (asset.Price, bool) {
	if p, ok := a.prices[token]; ok {
		return p, true
	}
	if token.IsNative() && a.wrappedNative != (asset.TokenAddress{}) {
		p, ok := a.prices[token.AsERC20(a.wrappedNative)]
		return p, ok
	}
	return asset.Price{}, false
}

// NativePrices returns a copy of the native price map.
func (a *Auction) NativePrices() map[asset.TokenAddress]asset.Price {
	return maps.Clone(a.prices)
}

// FeePolicies returns the fee policies of an order, possibly empty.
func (a *Auction) FeePolicies(uid OrderUid) []FeePolicy {
	return slices.Clone(a.fees[uid])
}

// WithDeadline returns a copy of the auction with a new deadline.
func (a *Auction) WithDeadline(deadline time.Time) *Auction {
	c := *a
	c.deadline = deadline
	return &c
}
