package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/autopilot/internal/asset"
)

// Score is a non-negative value in wei. It is always an integer; floats
// appear only in the display helpers.
type Score struct {
	wei asset.TokenAmount
}

// ZeroScore is the score of a solution worth nothing.
var ZeroScore = Score{}

// NewScore converts an Ether value to a Score.
func NewScore(e asset.Ether) (Score, error) {
	if e.Sign() < 0 {
		return Score{}, ErrNegativeScore
	}
	amount, err := e.ToAmount()
	if err != nil {
		return Score{}, err
	}
	return Score{wei: amount}, nil
}

// ScoreFromWei creates a score from a uint64 wei value.
func ScoreFromWei(wei uint64) Score {
	return Score{wei: asset.NewTokenAmount(wei)}
}

// ParseScore parses a base-10 wei string.
func ParseScore(s string) (Score, error) {
	amount, err := asset.ParseTokenAmount(s)
	if err != nil {
		return Score{}, err
	}
	return Score{wei: amount}, nil
}

// Cmp compares two scores.
func (s Score) Cmp(other Score) int { return s.wei.Cmp(other.wei) }

// IsZero reports a zero score.
func (s Score) IsZero() bool { return s.wei.IsZero() }

// Wei returns the score as big.Int.
func (s Score) Wei() *big.Int { return s.wei.Big() }

// Ether returns the score as an Ether value.
func (s Score) Ether() asset.Ether { return asset.EtherFromAmount(s.wei) }

// MinScore returns the smaller score.
func MinScore(a, b Score) Score {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Decimal returns the score in ETH for display.
func (s Score) Decimal() decimal.Decimal {
	return s.Ether().ToDecimal()
}

// Float64 returns the score in ETH for display and metrics.
func (s Score) Float64() float64 {
	return s.Decimal().InexactFloat64()
}

// String returns the score in ETH.
func (s Score) String() string { return s.Ether().String() }

// MarshalText encodes the score as a wei string.
func (s Score) MarshalText() ([]byte, error) { return s.wei.MarshalText() }

// UnmarshalText decodes a wei string.
func (s *Score) UnmarshalText(text []byte) error { return s.wei.UnmarshalText(text) }
