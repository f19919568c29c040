package domain

import (
	"math/big"
	"time"

	"github.com/fd1az/autopilot/internal/asset"
)

// GasPrice is a gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice observed now.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: new(big.Int).Set(wei), Timestamp: time.Now()}
}

// Gwei returns the price in gwei for display and metrics.
func (g *GasPrice) Gwei() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(g.Wei), big.NewFloat(1e9)).Float64()
	return f
}

// Cost returns the cost of spending gas units at this price.
func (g *GasPrice) Cost(gas uint64) (asset.Ether, error) {
	return asset.NewEther(new(big.Int).Mul(g.Wei, new(big.Int).SetUint64(gas)))
}
