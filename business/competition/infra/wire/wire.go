// Package wire holds the JSON representations exchanged with the
// orderbook and the solvers, and their conversion to domain types.
//
// Amounts are decimal strings, addresses and order uids 0x-hex. Native
// prices are decimal strings (wei per 1e18 token units); clearing prices
// are either decimal strings or {"num": "...", "den": "..."} objects.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/asset"
)

// Price is a rational price that accepts both encodings.
type Price struct {
	asset.Price
}

type priceObject struct {
	Num string `json:"num"`
	Den string `json:"den"`
}

// UnmarshalJSON accepts "123", "1/3" or {"num": "1", "den": "3"}.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj priceObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		parsed, err := asset.ParsePrice(obj.Num + "/" + obj.Den)
		if err != nil {
			return err
		}
		p.Price = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("price must be a string or an object: %w", err)
	}
	parsed, err := asset.ParsePrice(s)
	if err != nil {
		return err
	}
	p.Price = parsed
	return nil
}

// MarshalJSON always emits the object form.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceObject{Num: p.Num().String(), Den: p.Den().String()})
}

// Quote is the user quote a price improvement fee refers to.
type Quote struct {
	SellAmount asset.TokenAmount `json:"sellAmount"`
	BuyAmount  asset.TokenAmount `json:"buyAmount"`
	Fee        asset.TokenAmount `json:"fee"`
}

// FeePolicy is tagged by kind: "surplus", "priceImprovement" or "volume".
type FeePolicy struct {
	Kind            string  `json:"kind"`
	Factor          float64 `json:"factor"`
	MaxVolumeFactor float64 `json:"maxVolumeFactor,omitempty"`
	Quote           *Quote  `json:"quote,omitempty"`
}

// ToDomain converts the policy.
func (f FeePolicy) ToDomain() (domain.FeePolicy, error) {
	switch f.Kind {
	case "surplus":
		return domain.SurplusFee(f.Factor, f.MaxVolumeFactor), nil
	case "priceImprovement":
		if f.Quote == nil {
			return domain.FeePolicy{}, fmt.Errorf("%w: priceImprovement without quote", domain.ErrInvalidFeePolicy)
		}
		return domain.PriceImprovementFee(f.Factor, f.MaxVolumeFactor, domain.Quote{
			SellAmount: f.Quote.SellAmount,
			BuyAmount:  f.Quote.BuyAmount,
			Fee:        f.Quote.Fee,
		}), nil
	case "volume":
		return domain.VolumeFee(f.Factor), nil
	default:
		return domain.FeePolicy{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidFeePolicy, f.Kind)
	}
}

// FeePolicyFromDomain converts a domain policy.
func FeePolicyFromDomain(p domain.FeePolicy) FeePolicy {
	out := FeePolicy{Kind: p.Kind.String(), Factor: p.Factor, MaxVolumeFactor: p.MaxVolumeFactor}
	if p.Kind == domain.FeePriceImprovement {
		out.Quote = &Quote{SellAmount: p.Quote.SellAmount, BuyAmount: p.Quote.BuyAmount, Fee: p.Quote.Fee}
	}
	return out
}

// Order is an order in an auction.
type Order struct {
	UID               domain.OrderUid   `json:"uid"`
	SellToken         common.Address    `json:"sellToken"`
	BuyToken          common.Address    `json:"buyToken"`
	SellAmount        asset.TokenAmount `json:"sellAmount"`
	BuyAmount         asset.TokenAmount `json:"buyAmount"`
	Kind              domain.Side       `json:"kind"`
	PartiallyFillable bool              `json:"partiallyFillable"`
	ProtocolFees      []FeePolicy       `json:"protocolFees,omitempty"`
}

// ToDomain converts the order, without its fees.
func (o Order) ToDomain() domain.Order {
	return domain.Order{
		UID:               o.UID,
		SellToken:         asset.NewTokenAddress(o.SellToken),
		BuyToken:          asset.NewTokenAddress(o.BuyToken),
		Side:              o.Kind,
		SellAmount:        o.SellAmount,
		BuyAmount:         o.BuyAmount,
		PartiallyFillable: o.PartiallyFillable,
	}
}

// Auction is the body of GET /api/v1/auction and part of the solve request.
type Auction struct {
	ID       int64                     `json:"id"`
	Block    uint64                    `json:"block"`
	Orders   []Order                   `json:"orders"`
	Prices   map[common.Address]string `json:"prices"`
	Deadline *time.Time                `json:"deadline,omitempty"`
}

// ToDomain validates and converts the auction.
func (a Auction) ToDomain(wrappedNative asset.TokenAddress) (*domain.Auction, error) {
	params := domain.AuctionParams{
		ID:            domain.AuctionID(a.ID),
		Block:         a.Block,
		Orders:        make([]domain.Order, 0, len(a.Orders)),
		NativePrices:  make(map[asset.TokenAddress]asset.Price, len(a.Prices)),
		FeePolicies:   make(map[domain.OrderUid][]domain.FeePolicy),
		WrappedNative: wrappedNative,
	}
	if a.Deadline != nil {
		params.Deadline = *a.Deadline
	}

	for _, o := range a.Orders {
		params.Orders = append(params.Orders, o.ToDomain())
		for _, f := range o.ProtocolFees {
			policy, err := f.ToDomain()
			if err != nil {
				return nil, fmt.Errorf("order %s: %w", o.UID.Short(), err)
			}
			params.FeePolicies[o.UID] = append(params.FeePolicies[o.UID], policy)
		}
	}

	for token, raw := range a.Prices {
		amount, err := asset.ParseTokenAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("native price of %s: %w", token.Hex(), err)
		}
		params.NativePrices[asset.NewTokenAddress(token)] = asset.NewNativePrice(amount)
	}

	return domain.NewAuction(params)
}

// nativeScale converts a native price back to wei per 1e18 units.
var nativeScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(asset.EtherDecimals), nil)

// AuctionFromDomain converts an auction for a solve request.
func AuctionFromDomain(a *domain.Auction) Auction {
	out := Auction{
		ID:     int64(a.ID()),
		Block:  a.Block(),
		Orders: make([]Order, 0, a.OrderCount()),
		Prices: make(map[common.Address]string),
	}
	if d := a.Deadline(); !d.IsZero() {
		out.Deadline = &d
	}
	for _, o := range a.Orders() {
		wo := Order{
			UID:               o.UID,
			SellToken:         o.SellToken.Address,
			BuyToken:          o.BuyToken.Address,
			SellAmount:        o.SellAmount,
			BuyAmount:         o.BuyAmount,
			Kind:              o.Side,
			PartiallyFillable: o.PartiallyFillable,
		}
		for _, f := range a.FeePolicies(o.UID) {
			wo.ProtocolFees = append(wo.ProtocolFees, FeePolicyFromDomain(f))
		}
		out.Orders = append(out.Orders, wo)
	}
	for token, p := range a.NativePrices() {
		wei := new(big.Int).Mul(p.Num(), nativeScale)
		out.Prices[token.Address] = wei.Quo(wei, p.Den()).String()
	}
	return out
}

// Trade is one executed order in a solution.
type Trade struct {
	Order        domain.OrderUid   `json:"order"`
	ExecutedSell asset.TokenAmount `json:"executedSell"`
	ExecutedBuy  asset.TokenAmount `json:"executedBuy"`
}

// Solution is one proposal in a solve response.
type Solution struct {
	ID                 uint64                   `json:"id"`
	Trades             []Trade                  `json:"trades"`
	Prices             map[common.Address]Price `json:"prices"`
	Gas                *uint64                  `json:"gas,omitempty"`
	SuccessProbability *float64                 `json:"successProbability,omitempty"`
	Score              *asset.TokenAmount       `json:"score,omitempty"`
}

// ToDomain converts the solution into a proposal.
func (s Solution) ToDomain() domain.Proposal {
	p := domain.Proposal{
		ID:                 domain.SolutionID(s.ID),
		Trades:             make([]domain.Trade, 0, len(s.Trades)),
		Prices:             make(map[asset.TokenAddress]asset.Price, len(s.Prices)),
		SuccessProbability: s.SuccessProbability,
	}
	for _, t := range s.Trades {
		p.Trades = append(p.Trades, domain.Trade{
			OrderUID:     t.Order,
			ExecutedSell: t.ExecutedSell,
			ExecutedBuy:  t.ExecutedBuy,
		})
	}
	for token, price := range s.Prices {
		p.Prices[asset.NewTokenAddress(token)] = price.Price
	}
	if s.Gas != nil {
		p.Gas = *s.Gas
	}
	if s.Score != nil {
		reported := asset.EtherFromAmount(*s.Score)
		p.ReportedScore = &reported
	}
	return p
}

// SolveRequest is the body of POST /solve.
type SolveRequest struct {
	Auction
}

// SolveResponse is the answer to POST /solve.
type SolveResponse struct {
	Solutions []Solution `json:"solutions"`
}
