package domain

import (
	"fmt"
	"math"
	"math/big"

	"github.com/fd1az/autopilot/internal/asset"
)

// RiskAdjustedScore is the expected value of a solution:
//
//	p * objective - (1 - p) * gasCost
//
// computed exactly, floored to wei and clamped to scoreCap (zero means
// uncapped). A negative result rejects the solution; zero is a valid score.
func RiskAdjustedScore(objective, gasCost asset.Ether, successProbability float64, scoreCap asset.Ether) (Score, error) {
	if math.IsNaN(successProbability) || successProbability < 0 || successProbability > 1 {
		return Score{}, fmt.Errorf("%w: %v", ErrInvalidProbability, successProbability)
	}

	p := new(big.Rat).SetFloat64(successProbability)
	fail := new(big.Rat).Sub(big.NewRat(1, 1), p)

	gain := new(big.Rat).Mul(p, objective.Rat())
	loss := new(big.Rat).Mul(fail, gasCost.Rat())
	net := gain.Sub(gain, loss)
	if net.Sign() < 0 {
		return Score{}, fmt.Errorf("%w: expected value %s wei", ErrNegativeScore, net.FloatString(0))
	}

	// non-negative, so truncation is floor
	wei := new(big.Int).Quo(net.Num(), net.Denom())
	if scoreCap.Sign() > 0 && wei.Cmp(scoreCap.Wei()) > 0 {
		wei = scoreCap.Wei()
	}
	e, err := asset.NewEther(wei)
	if err != nil {
		return Score{}, err
	}
	return NewScore(e)
}

// ReportedScore validates a score the solver computed itself. It must be
// positive and may not exceed the objective value of the solution.
func ReportedScore(reported, objective, scoreCap asset.Ether) (Score, error) {
	if reported.Sign() <= 0 {
		return Score{}, ErrZeroScore
	}
	if reported.Cmp(objective) > 0 {
		return Score{}, fmt.Errorf("%w: %s > %s", ErrScoreAboveObjective, reported, objective)
	}
	if scoreCap.Sign() > 0 && reported.Cmp(scoreCap) > 0 {
		reported = scoreCap
	}
	return NewScore(reported)
}

// RevertModel estimates the probability that a settlement reverts from
// its gas usage and the gas price.
type RevertModel struct {
	Beta   float64
	Alpha1 float64 // per 1k gas
	Alpha2 float64 // per gwei
}

// RevertProbability returns 1/(1+exp(-beta - alpha1*gas/1e3 - alpha2*gasPrice/1e9)).
func (m RevertModel) RevertProbability(gas uint64, gasPriceWei *big.Int) float64 {
	gwei := 0.0
	if gasPriceWei != nil {
		gwei, _ = new(big.Float).Quo(new(big.Float).SetInt(gasPriceWei), big.NewFloat(1e9)).Float64()
	}
	x := -m.Beta - m.Alpha1*float64(gas)/1e3 - m.Alpha2*gwei
	return 1 / (1 + math.Exp(x))
}

// SuccessProbability is 1 - RevertProbability.
func (m RevertModel) SuccessProbability(gas uint64, gasPriceWei *big.Int) float64 {
	return 1 - m.RevertProbability(gas, gasPriceWei)
}

// Proposal is a solution as returned by a solver, before scoring.
type Proposal struct {
	ID     SolutionID
	Trades []Trade
	Prices map[asset.TokenAddress]asset.Price
	Gas    uint64 // estimated, 0 means unknown

	// At most one of these is usually set. A reported score wins over a
	// probability; with neither the revert model decides.
	SuccessProbability *float64
	ReportedScore      *asset.Ether
}

// Scorer turns proposals into scored solutions.
type Scorer struct {
	Model      RevertModel
	ScoreCap   asset.Ether
	DefaultGas uint64
}

// Score computes the score of a proposal within an auction at the given
// gas price.
func (s Scorer) Score(auction *Auction, p Proposal, gasPriceWei *big.Int) (Score, error) {
	objective, err := ObjectiveValue(auction, p.Trades)
	if err != nil {
		return Score{}, err
	}
	if p.ReportedScore != nil {
		return ReportedScore(*p.ReportedScore, objective, s.ScoreCap)
	}

	gas := p.Gas
	if gas == 0 {
		gas = s.DefaultGas
	}
	price := gasPriceWei
	if price == nil {
		price = new(big.Int)
	}
	gasCost, err := asset.NewEther(new(big.Int).Mul(new(big.Int).SetUint64(gas), price))
	if err != nil {
		return Score{}, err
	}

	probability := s.Model.SuccessProbability(gas, price)
	if p.SuccessProbability != nil {
		probability = *p.SuccessProbability
	}
	return RiskAdjustedScore(objective, gasCost, probability, s.ScoreCap)
}
