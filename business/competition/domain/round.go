package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// RoundResult is the outcome of one competition round.
type RoundResult struct {
	ID               uuid.UUID
	Auction          *Auction
	Ranking          Ranking
	ReferenceScores  map[common.Address]Score
	SolversQueried   int
	SolversResponded int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Winner returns the best winning solution, if any.
func (r RoundResult) Winner() (Ranked, bool) {
	winners := r.Ranking.Winners()
	if len(winners) == 0 {
		return Ranked{}, false
	}
	return winners[0], true
}

// Duration is the wall time the round took.
func (r RoundResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WinnerSummary is the persisted view of one winning solution.
type WinnerSummary struct {
	Solver     string
	Address    common.Address
	SolutionID SolutionID
	Score      Score
	Reference  Score
	Orders     int
}

// RoundSummary is the flattened, storable view of a round.
type RoundSummary struct {
	ID               uuid.UUID
	AuctionID        AuctionID
	Block            uint64
	Orders           int
	Solutions        int
	FilteredOut      int
	SolversQueried   int
	SolversResponded int
	Winners          []WinnerSummary
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Summary flattens the round for storage and display.
func (r RoundResult) Summary() RoundSummary {
	s := RoundSummary{
		ID:               r.ID,
		Solutions:        len(r.Ranking.Ranked()),
		FilteredOut:      len(r.Ranking.FilteredOut()),
		SolversQueried:   r.SolversQueried,
		SolversResponded: r.SolversResponded,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
	if r.Auction != nil {
		s.AuctionID = r.Auction.ID()
		s.Block = r.Auction.Block()
		s.Orders = r.Auction.OrderCount()
	}
	for _, w := range r.Ranking.Winners() {
		s.Winners = append(s.Winners, WinnerSummary{
			Solver:     w.Solver().Name,
			Address:    w.Solver().Address,
			SolutionID: w.Solution().ID(),
			Score:      w.Solution().Score(),
			Reference:  r.ReferenceScores[w.Solver().Address],
			Orders:     w.Solution().TradeCount(),
		})
	}
	return s
}
