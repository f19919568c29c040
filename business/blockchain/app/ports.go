// Package app holds the chain-facing services that drive competition
// rounds: new heads trigger a round, the gas price feeds scoring.
package app

import (
	"context"

	"github.com/fd1az/autopilot/business/blockchain/domain"
)

// BlockSubscriber streams chain heads.
type BlockSubscriber interface {
	// Subscribe returns a channel of heads. It is closed when ctx ends or
	// the subscriber is closed.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)
	LatestBlock(ctx context.Context) (*domain.Block, error)
	State() domain.ConnectionState
}

// GasOracle returns the gas price that prices the execution cost of a
// solution.
type GasOracle interface {
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)
}
