// Package app contains the round runner, the service loop and the port
// definitions of the competition context.
package app

import (
	"context"
	"time"

	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/domain"
)

// AuctionSource provides the auction of the next round.
type AuctionSource interface {
	FetchAuction(ctx context.Context) (*domain.Auction, error)
}

// SolverClient asks one solver for solutions.
type SolverClient interface {
	// Solver identifies the solver and its submission address.
	Solver() domain.Solver
	// Solve returns the solver's proposals. It must honour the context
	// deadline, which is the auction deadline.
	Solve(ctx context.Context, auction *domain.Auction) ([]domain.Proposal, error)
}

// GasPriceSource provides the gas price rounds are scored at.
// *blockchain/app.BlockchainService satisfies it.
type GasPriceSource interface {
	GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error)
}

// Store persists round outcomes.
type Store interface {
	SaveRound(ctx context.Context, round domain.RoundSummary) error
	// RecentRounds returns up to limit rounds, newest first.
	RecentRounds(ctx context.Context, limit int) ([]domain.RoundSummary, error)
}

// Settler hands the winners of a round over for settlement.
type Settler interface {
	Settle(ctx context.Context, auction *domain.Auction, winners []domain.Ranked) error
}

// Reporter displays round outcomes.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportRound displays a finished round.
	ReportRound(round domain.RoundResult)

	// ReportSolverStatus updates the status of one solver after a round.
	ReportSolverStatus(name string, responded bool, proposals int, latency time.Duration)

	// ReportError displays a round that failed.
	ReportError(err error)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// ChainReporter is implemented by reporters that also display chain state.
// It is optional; the service checks for it at runtime.
type ChainReporter interface {
	ReportBlock(number uint64, at time.Time)
	ReportGasPrice(gwei float64)
}
