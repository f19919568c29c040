package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Solver is a competition participant.
type Solver struct {
	Name    string
	Address common.Address
}

// Unranked is a solution that has not gone through winner selection.
type Unranked struct {
	solution *Solution
	solver   Solver
}

// NewParticipant pairs a solution with the solver that proposed it.
func NewParticipant(name string, s *Solution) Unranked {
	return Unranked{solution: s, solver: Solver{Name: name, Address: s.Solver()}}
}

// Solution returns the proposed solution.
func (p Unranked) Solution() *Solution { return p.solution }

// Solver returns the proposing solver.
func (p Unranked) Solver() Solver { return p.solver }

// RankState is the outcome of winner selection for one solution.
type RankState uint8

const (
	StateNonWinner RankState = iota
	StateWinner
	StateFilteredOut
)

// String returns the state name.
func (s RankState) String() string {
	switch s {
	case StateWinner:
		return "winner"
	case StateFilteredOut:
		return "filtered_out"
	default:
		return "non_winner"
	}
}

// Ranked is a solution after winner selection. Its state is fixed.
type Ranked struct {
	solution *Solution
	solver   Solver
	state    RankState
	rank     int
	reason   error
}

// rank is the only way to create a Ranked participant.
func rank(p Unranked, state RankState, position int) Ranked {
	return Ranked{solution: p.solution, solver: p.solver, state: state, rank: position}
}

func filteredOut(p Unranked, reason error) Ranked {
	return Ranked{solution: p.solution, solver: p.solver, state: StateFilteredOut, rank: -1, reason: reason}
}

// Solution returns the ranked solution.
func (p Ranked) Solution() *Solution { return p.solution }

// Solver returns the proposing solver.
func (p Ranked) Solver() Solver { return p.solver }

// IsWinner reports whether the solution won.
func (p Ranked) IsWinner() bool { return p.state == StateWinner }

// State returns the selection outcome.
func (p Ranked) State() RankState { return p.state }

// Rank is the position in the ranking, -1 for filtered out solutions.
func (p Ranked) Rank() int { return p.rank }

// Reason is why a filtered out solution was discarded.
func (p Ranked) Reason() error { return p.reason }

// Ranking is the result of one arbitration.
type Ranking struct {
	ranked      []Ranked
	filteredOut []Ranked
}

// Ranked returns winners then non-winners in rank order.
func (r Ranking) Ranked() []Ranked {
	return append([]Ranked(nil), r.ranked...)
}

// FilteredOut returns the discarded solutions in input order.
func (r Ranking) FilteredOut() []Ranked {
	return append([]Ranked(nil), r.filteredOut...)
}

// Winners returns the winning solutions, best first.
func (r Ranking) Winners() []Ranked {
	var out []Ranked
	for _, p := range r.ranked {
		if p.IsWinner() {
			out = append(out, p)
		}
	}
	return out
}

// NonWinners returns valid solutions that did not win.
func (r Ranking) NonWinners() []Ranked {
	var out []Ranked
	for _, p := range r.ranked {
		if p.state == StateNonWinner {
			out = append(out, p)
		}
	}
	return out
}

// All returns ranked solutions followed by filtered out ones.
func (r Ranking) All() []Ranked {
	out := make([]Ranked, 0, len(r.ranked)+len(r.filteredOut))
	out = append(out, r.ranked...)
	return append(out, r.filteredOut...)
}
