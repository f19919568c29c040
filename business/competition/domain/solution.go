package domain

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/autopilot/internal/asset"
)

// SolutionID is the solver-assigned identifier of a solution, unique per
// solver within a round.
type SolutionID uint64

// Trade is one order's execution: the amounts that left and entered the
// trader's wallet.
type Trade struct {
	OrderUID     OrderUid
	ExecutedSell asset.TokenAmount
	ExecutedBuy  asset.TokenAmount
}

// Solution is an immutable proposal from one solver.
type Solution struct {
	id     SolutionID
	solver common.Address
	trades map[OrderUid]Trade
	uids   []OrderUid // sorted, for deterministic iteration
	prices map[asset.TokenAddress]asset.Price
	score  Score
}

// NewSolution builds a solution. Trading the same order twice is a
// programming error and panics; callers building from untrusted input must
// deduplicate first.
func NewSolution(
	id SolutionID,
	solver common.Address,
	trades []Trade,
	prices map[asset.TokenAddress]asset.Price,
	score Score,
) *Solution {
	s := &Solution{
		id:     id,
		solver: solver,
		trades: make(map[OrderUid]Trade, len(trades)),
		uids:   make([]OrderUid, 0, len(trades)),
		prices: maps.Clone(prices),
		score:  score,
	}
	if s.prices == nil {
		s.prices = map[asset.TokenAddress]asset.Price{}
	}
	for _, t := range trades {
		if _, dup := s.trades[t.OrderUID]; dup {
			panic(fmt.Sprintf("competition: solution %d trades order %s twice", id, t.OrderUID))
		}
		s.trades[t.OrderUID] = t
		s.uids = append(s.uids, t.OrderUID)
	}
	slices.SortFunc(s.uids, OrderUid.Compare)
	return s
}

// ID returns the solver-assigned id.
func (s *Solution) ID() SolutionID { return s.id }

// Solver returns the submission address.
func (s *Solution) Solver() common.Address { return s.solver }

// Score returns the solution's score.
func (s *Solution) Score() Score { return s.score }

// Trades reports whether the solution executes the given order.
func (s *Solution) Trades(uid OrderUid) bool {
	_, ok := s.trades[uid]
	return ok
}

// Trade returns the execution of one order.
func (s *Solution) Trade(uid OrderUid) (Trade, bool) {
	t, ok := s.trades[uid]
	return t, ok
}

// TradeList returns all trades ordered by uid.
func (s *Solution) TradeList() []Trade {
	out := make([]Trade, 0, len(s.uids))
	for _, uid := range s.uids {
		out = append(out, s.trades[uid])
	}
	return out
}

// OrderUIDs returns the traded uids in ascending order.
func (s *Solution) OrderUIDs() []OrderUid {
	return slices.Clone(s.uids)
}

// TradeCount returns the number of traded orders.
func (s *Solution) TradeCount() int { return len(s.uids) }

// ClearingPrice returns the uniform clearing price of a token.
func (s *Solution) ClearingPrice(token asset.TokenAddress) (asset.Price, bool) {
	p, ok := s.prices[token]
	return p, ok
}

// ClearingPrices returns a copy of the clearing price vector.
func (s *Solution) ClearingPrices() map[asset.TokenAddress]asset.Price {
	return maps.Clone(s.prices)
}

// TouchedTokens returns the sell and buy tokens of every traded order
// known to the auction.
func (s *Solution) TouchedTokens(auction *Auction) map[asset.TokenAddress]struct{} {
	tokens := make(map[asset.TokenAddress]struct{}, 2*len(s.uids))
	for _, uid := range s.uids {
		order, ok := auction.Order(uid)
		if !ok {
			continue
		}
		tokens[order.SellToken] = struct{}{}
		tokens[order.BuyToken] = struct{}{}
	}
	return tokens
}

// String returns a short identifier for logs.
func (s *Solution) String() string {
	return fmt.Sprintf("%s#%d", s.solver.Hex(), s.id)
}

// Overlaps reports whether two solutions trade at least one common order.
func Overlaps(a, b *Solution) bool {
	small, large := a, b
	if len(large.trades) < len(small.trades) {
		small, large = large, small
	}
	for uid := range small.trades {
		if _, ok := large.trades[uid]; ok {
			return true
		}
	}
	return false
}
