package domain

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/internal/asset"
)

func wei(s string) asset.Ether {
	e, err := asset.NewEther(bigInt(s))
	if err != nil {
		panic(err)
	}
	return e
}

func TestRiskAdjustedScore(t *testing.T) {
	tests := []struct {
		name      string
		objective string
		gas       string
		p         float64
		cap       string
		want      string
		wantErr   error
	}{
		{name: "certain success ignores gas", objective: "1000", gas: "5000", p: 1, cap: "0", want: "1000"},
		{name: "expected value", objective: "1000", gas: "200", p: 0.75, cap: "0", want: "700"},
		{name: "floored to wei", objective: "3", gas: "0", p: 0.5, cap: "0", want: "1"},
		{name: "zero is a valid score", objective: "1000", gas: "1000", p: 0.5, cap: "0", want: "0"},
		{name: "clamped to cap", objective: "1000000000000000000", gas: "0", p: 1, cap: "12000000000000000", want: "12000000000000000"},
		{name: "negative rejected", objective: "1000", gas: "10000", p: 0.5, cap: "0", wantErr: ErrNegativeScore},
		{name: "certain revert with gas", objective: "1000", gas: "1", p: 0, cap: "0", wantErr: ErrNegativeScore},
		{name: "probability above one", objective: "1", gas: "0", p: 1.1, cap: "0", wantErr: ErrInvalidProbability},
		{name: "probability below zero", objective: "1", gas: "0", p: -0.1, cap: "0", wantErr: ErrInvalidProbability},
		{name: "probability NaN", objective: "1", gas: "0", p: math.NaN(), cap: "0", wantErr: ErrInvalidProbability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RiskAdjustedScore(wei(tt.objective), wei(tt.gas), tt.p, wei(tt.cap))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Wei().String())
		})
	}
}

func TestReportedScore(t *testing.T) {
	objective := wei("1000")

	_, err := ReportedScore(wei("0"), objective, wei("0"))
	assert.ErrorIs(t, err, ErrZeroScore)

	_, err = ReportedScore(wei("1001"), objective, wei("0"))
	assert.ErrorIs(t, err, ErrScoreAboveObjective)

	got, err := ReportedScore(wei("900"), objective, wei("0"))
	require.NoError(t, err)
	assert.Equal(t, ScoreFromWei(900), got)

	got, err = ReportedScore(wei("900"), objective, wei("500"))
	require.NoError(t, err)
	assert.Equal(t, ScoreFromWei(500), got)
}

func TestRevertModel(t *testing.T) {
	flat := RevertModel{}
	assert.InDelta(t, 0.5, flat.RevertProbability(2, big.NewInt(2)), 1e-12)

	realistic := RevertModel{Beta: -4.321187333208046, Alpha1: 0.0018180663326599151, Alpha2: 0.005331921562999044}
	// 500k gas at 20 gwei
	assert.InDelta(t, 0.035, realistic.RevertProbability(500_000, big.NewInt(20e9)), 0.002)
	assert.InDelta(t, 0.965, realistic.SuccessProbability(500_000, big.NewInt(20e9)), 0.002)

	// more gas, more risk
	assert.Greater(t,
		realistic.RevertProbability(2_000_000, big.NewInt(20e9)),
		realistic.RevertProbability(100_000, big.NewInt(20e9)))
}

func TestScorer(t *testing.T) {
	auction := newTestAuction(t, nil)
	trades := []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")} // objective 5e15
	gasPrice := big.NewInt(1e9)

	t.Run("solver probability", func(t *testing.T) {
		one := 1.0
		s := Scorer{DefaultGas: 100_000}
		got, err := s.Score(auction, Proposal{Trades: trades, SuccessProbability: &one}, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, "5000000000000000", got.Wei().String())
	})

	t.Run("reported score wins", func(t *testing.T) {
		reported := wei("1000")
		half := 0.5
		got, err := Scorer{}.Score(auction, Proposal{Trades: trades, ReportedScore: &reported, SuccessProbability: &half}, gasPrice)
		require.NoError(t, err)
		assert.Equal(t, ScoreFromWei(1000), got)
	})

	t.Run("revert model fallback", func(t *testing.T) {
		s := Scorer{DefaultGas: 100_000, ScoreCap: wei("1000000000000000")}
		got, err := s.Score(auction, Proposal{Trades: trades}, gasPrice)
		require.NoError(t, err)
		// p = 0.5, 0.5*5e15 - 0.5*1e14 > cap
		assert.Equal(t, "1000000000000000", got.Wei().String())
	})

	t.Run("unknown order", func(t *testing.T) {
		bad := []Trade{{OrderUID: uidN(99), ExecutedSell: amt("1"), ExecutedBuy: amt("1")}}
		_, err := Scorer{}.Score(auction, Proposal{Trades: bad}, gasPrice)
		assert.ErrorIs(t, err, ErrUnknownOrder)
	})
}

func TestNewScore(t *testing.T) {
	_, err := NewScore(asset.EtherFromWei(-1))
	assert.ErrorIs(t, err, ErrNegativeScore)

	s, err := NewScore(wei("1500000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", s.Decimal().String())
	assert.InDelta(t, 1.5, s.Float64(), 1e-12)
	assert.Equal(t, -1, ZeroScore.Cmp(s))
}
