package domain

import (
	"bytes"
	"cmp"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/autopilot/internal/asset"
)

// Arbitrator selects the winners of an auction among competing solutions.
//
// MaxScoreArbitrator is the only implementation. A combinatorial variant,
// picking the score-maximising set of non-overlapping solutions, would
// implement the same interface.
type Arbitrator interface {
	// FilterSolutions drops invalid and unfair solutions, preserving the
	// relative order of the rest.
	FilterSolutions(solutions []Unranked, auction *Auction) []Unranked
	// MarkWinners ranks solutions and decides which ones win.
	MarkWinners(solutions []Unranked) []Ranked
	// ComputeReferenceScores returns, per winning solver, the score the
	// auction would have settled for without that solver.
	ComputeReferenceScores(solutions []Ranked) map[common.Address]Score
	// Arbitrate filters then marks winners, keeping the discarded
	// solutions in the result.
	Arbitrate(solutions []Unranked, auction *Auction) Ranking
}

// ArbitratorConfig configures MaxScoreArbitrator.
type ArbitratorConfig struct {
	MaxWinners            int // 0 means unlimited
	MaxSolutionsPerSolver int // 0 means unlimited

	// OnDiscard, if set, is called for every solution the filter drops.
	OnDiscard func(p Unranked, reason error)
}

// MaxScoreArbitrator greedily picks winners by descending score among
// solutions that do not share orders.
type MaxScoreArbitrator struct {
	cfg ArbitratorConfig
}

var _ Arbitrator = (*MaxScoreArbitrator)(nil)

// NewMaxScoreArbitrator creates an arbitrator.
func NewMaxScoreArbitrator(cfg ArbitratorConfig) *MaxScoreArbitrator {
	return &MaxScoreArbitrator{cfg: cfg}
}

// FilterSolutions implements Arbitrator.
func (a *MaxScoreArbitrator) FilterSolutions(solutions []Unranked, auction *Auction) []Unranked {
	kept, _ := a.partition(solutions, auction)
	return kept
}

// Arbitrate implements Arbitrator.
func (a *MaxScoreArbitrator) Arbitrate(solutions []Unranked, auction *Auction) Ranking {
	kept, discarded := a.partition(solutions, auction)
	return Ranking{ranked: a.MarkWinners(kept), filteredOut: discarded}
}

type evaluated struct {
	participant Unranked
	pairs       map[asset.DirectedTokenPair]asset.Ether
	reason      error
}

// partition splits solutions into kept and discarded, both in input order.
func (a *MaxScoreArbitrator) partition(solutions []Unranked, auction *Auction) ([]Unranked, []Ranked) {
	evals := make([]evaluated, len(solutions))
	for i, p := range solutions {
		evals[i].participant = p
		evals[i].pairs, evals[i].reason = checkSolution(auction, p.Solution())
	}

	a.applySolverQuota(evals)
	applyFairness(evals)

	kept := make([]Unranked, 0, len(evals))
	var discarded []Ranked
	for _, e := range evals {
		if e.reason == nil {
			kept = append(kept, e.participant)
			continue
		}
		discarded = append(discarded, filteredOut(e.participant, e.reason))
		if a.cfg.OnDiscard != nil {
			a.cfg.OnDiscard(e.participant, e.reason)
		}
	}
	return kept, discarded
}

// checkSolution validates every trade against the auction and returns the
// solution's score per token pair.
func checkSolution(auction *Auction, s *Solution) (map[asset.DirectedTokenPair]asset.Ether, error) {
	for _, t := range s.TradeList() {
		order, ok := auction.Order(t.OrderUID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, t.OrderUID.Short())
		}
		if err := checkExecution(order, t); err != nil {
			return nil, err
		}
		if err := checkClearingPrices(s, order, t); err != nil {
			return nil, err
		}
	}
	return scoresByPair(auction, s)
}

func checkExecution(o Order, t Trade) error {
	if t.ExecutedSell.IsZero() || t.ExecutedBuy.IsZero() {
		return fmt.Errorf("%w: order %s executed with a zero amount", ErrInvalidExecution, o.UID.Short())
	}

	executed := t.ExecutedSell
	if o.Side == SideBuy {
		executed = t.ExecutedBuy
	}
	switch c := executed.Cmp(o.TargetAmount()); {
	case c > 0:
		return fmt.Errorf("%w: order %s overfilled", ErrInvalidExecution, o.UID.Short())
	case c < 0 && !o.PartiallyFillable:
		return fmt.Errorf("%w: fill-or-kill order %s partially filled", ErrInvalidExecution, o.UID.Short())
	}

	// executed_buy / executed_sell >= limit_buy / limit_sell
	got := new(big.Int).Mul(t.ExecutedBuy.Big(), o.SellAmount.Big())
	want := new(big.Int).Mul(t.ExecutedSell.Big(), o.BuyAmount.Big())
	if got.Cmp(want) < 0 {
		return fmt.Errorf("%w: order %s", ErrLimitPriceViolated, o.UID.Short())
	}
	return nil
}

func checkClearingPrices(s *Solution, o Order, t Trade) error {
	sellPrice, ok := s.ClearingPrice(o.SellToken)
	if !ok || sellPrice.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingClearingPrice, o.SellToken.Hex())
	}
	buyPrice, ok := s.ClearingPrice(o.BuyToken)
	if !ok || buyPrice.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingClearingPrice, o.BuyToken.Hex())
	}

	// value received must not exceed value paid at clearing prices
	received := new(big.Int).Mul(t.ExecutedBuy.Big(), buyPrice.Num())
	received.Mul(received, sellPrice.Den())
	paid := new(big.Int).Mul(t.ExecutedSell.Big(), sellPrice.Num())
	paid.Mul(paid, buyPrice.Den())
	if received.Cmp(paid) > 0 {
		return fmt.Errorf("%w: order %s", ErrPricesDoNotReconcile, o.UID.Short())
	}
	return nil
}

// applySolverQuota discards all but the best MaxSolutionsPerSolver valid
// solutions of each solver.
func (a *MaxScoreArbitrator) applySolverQuota(evals []evaluated) {
	limit := a.cfg.MaxSolutionsPerSolver
	if limit <= 0 {
		return
	}

	bySolver := make(map[common.Address][]int)
	for i, e := range evals {
		if e.reason != nil {
			continue
		}
		addr := e.participant.Solution().Solver()
		bySolver[addr] = append(bySolver[addr], i)
	}
	for _, idx := range bySolver {
		if len(idx) <= limit {
			continue
		}
		slices.SortStableFunc(idx, func(x, y int) int {
			return compareRank(evals[x].participant, evals[y].participant)
		})
		for _, i := range idx[limit:] {
			evals[i].reason = fmt.Errorf("%w: limit is %d", ErrSolverQuotaExceeded, limit)
		}
	}
}

// applyFairness discards solutions that trade several token pairs and are
// worse on any of them than the best solution trading only that pair.
func applyFairness(evals []evaluated) {
	baselines := make(map[asset.DirectedTokenPair]asset.Ether)
	for _, e := range evals {
		if e.reason != nil || len(e.pairs) != 1 {
			continue
		}
		for pair, score := range e.pairs {
			if best, ok := baselines[pair]; !ok || score.Cmp(best) > 0 {
				baselines[pair] = score
			}
		}
	}

	for i := range evals {
		e := &evals[i]
		if e.reason != nil || len(e.pairs) <= 1 {
			continue
		}
		for pair, score := range e.pairs {
			baseline, ok := baselines[pair]
			if ok && score.Cmp(baseline) < 0 {
				e.reason = fmt.Errorf("%w: %s scores %s, baseline %s", ErrUnfairSolution, pair, score, baseline)
				break
			}
		}
	}
}

// compareRank orders by score descending, then solver address and
// solution id ascending. It is a total order as long as (solver, id) is
// unique, which MarkWinners enforces.
func compareRank(x, y Unranked) int {
	return compareSolutions(x.Solution(), y.Solution())
}

func compareSolutions(sx, sy *Solution) int {
	if c := sy.Score().Cmp(sx.Score()); c != 0 {
		return c
	}
	if c := bytes.Compare(sx.Solver().Bytes(), sy.Solver().Bytes()); c != 0 {
		return c
	}
	return cmp.Compare(sx.ID(), sy.ID())
}

// MarkWinners implements Arbitrator. A solution wins if it shares no order
// with a better winner and the winner limit is not reached. Winners come
// first, then non-winners, both in rank order.
//
// Panics if two solutions share solver and id: the ranking would depend on
// arrival order.
func (a *MaxScoreArbitrator) MarkWinners(solutions []Unranked) []Ranked {
	type key struct {
		solver common.Address
		id     SolutionID
	}
	seen := make(map[key]struct{}, len(solutions))
	for _, p := range solutions {
		k := key{p.Solution().Solver(), p.Solution().ID()}
		if _, dup := seen[k]; dup {
			panic(fmt.Sprintf("competition: duplicate solution %s from solver %s", p.Solution(), k.solver.Hex()))
		}
		seen[k] = struct{}{}
	}

	sorted := slices.Clone(solutions)
	slices.SortFunc(sorted, compareRank)

	ordered := make([]*Solution, len(sorted))
	for i, p := range sorted {
		ordered[i] = p.Solution()
	}
	won := a.pickWinners(ordered)

	var winners, losers []Unranked
	for _, p := range sorted {
		if _, ok := won[p.Solution()]; ok {
			winners = append(winners, p)
		} else {
			losers = append(losers, p)
		}
	}

	out := make([]Ranked, 0, len(sorted))
	for _, p := range winners {
		out = append(out, rank(p, StateWinner, len(out)))
	}
	for _, p := range losers {
		out = append(out, rank(p, StateNonWinner, len(out)))
	}
	return out
}

// pickWinners runs the greedy selection over solutions sorted by rank.
func (a *MaxScoreArbitrator) pickWinners(sorted []*Solution) map[*Solution]struct{} {
	winners := make(map[*Solution]struct{})
	claimed := make(map[OrderUid]struct{})
	for _, s := range sorted {
		if a.cfg.MaxWinners > 0 && len(winners) >= a.cfg.MaxWinners {
			break
		}
		if claimsAny(s, claimed) {
			continue
		}
		for _, uid := range s.OrderUIDs() {
			claimed[uid] = struct{}{}
		}
		winners[s] = struct{}{}
	}
	return winners
}

func claimsAny(s *Solution, claimed map[OrderUid]struct{}) bool {
	for _, uid := range s.OrderUIDs() {
		if _, ok := claimed[uid]; ok {
			return true
		}
	}
	return false
}

// ComputeReferenceScores implements Arbitrator. The input must be the
// output of MarkWinners, optionally followed by filtered out solutions.
//
// For a solver S the greedy selection is re-run over every ranked solution
// not proposed by S. For each winner W of S the reference is the best
// solution that wins the re-run, did not win the real round and ranks
// below W: the solution that takes W's place. A solver with several
// winners gets the smallest of their references.
func (a *MaxScoreArbitrator) ComputeReferenceScores(solutions []Ranked) map[common.Address]Score {
	refs := make(map[common.Address]Score)
	reruns := make(map[common.Address]map[*Solution]struct{})

	for i, w := range solutions {
		if !w.IsWinner() {
			continue
		}
		if w.rank != i {
			panic(fmt.Sprintf("competition: winner %s has rank %d but sits at position %d", w.solution, w.rank, i))
		}

		solver := w.solution.Solver()
		won, ok := reruns[solver]
		if !ok {
			won = a.pickWinners(withoutSolver(solutions, solver))
			reruns[solver] = won
		}

		ref := counterfactual(solutions, w, won)
		if prev, ok := refs[solver]; ok {
			ref = MinScore(prev, ref)
		}
		refs[solver] = ref
	}
	return refs
}

// withoutSolver returns the ranked solutions of every other solver, sorted
// by rank.
func withoutSolver(solutions []Ranked, excluded common.Address) []*Solution {
	var out []*Solution
	for _, p := range solutions {
		if p.state == StateFilteredOut || p.solution.Solver() == excluded {
			continue
		}
		out = append(out, p.solution)
	}
	slices.SortFunc(out, compareSolutions)
	return out
}

// counterfactual returns the score of the best solution that wins the
// re-run without w's solver, lost the real round and ranks below w.
func counterfactual(solutions []Ranked, w Ranked, won map[*Solution]struct{}) Score {
	best := ZeroScore
	var bestSolution *Solution
	for _, p := range solutions {
		if p.state != StateNonWinner {
			continue
		}
		if _, ok := won[p.solution]; !ok {
			continue
		}
		if compareSolutions(w.solution, p.solution) >= 0 {
			continue
		}
		if bestSolution == nil || compareSolutions(p.solution, bestSolution) < 0 {
			best, bestSolution = p.solution.Score(), p.solution
		}
	}
	return best
}
