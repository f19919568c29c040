package app_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/app"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/logger"
)

var (
	weth  = asset.HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc  = asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	owner = common.HexToAddress("0x00000000000000000000000000000000000000ff")

	fastSolver = domain.Solver{Name: "fast", Address: common.HexToAddress("0x000000000000000000000000000000000000000a")}
	slowSolver = domain.Solver{Name: "slow", Address: common.HexToAddress("0x000000000000000000000000000000000000000b")}

	// sell 1 WETH for at least 1000 USDC
	order = domain.Order{
		UID:        domain.NewOrderUid(common.Hash{1}, owner, 1_900_000_000),
		SellToken:  weth,
		BuyToken:   usdc,
		Side:       domain.SideSell,
		SellAmount: asset.MustParseTokenAmount("1000000000000000000"),
		BuyAmount:  asset.MustParseTokenAmount("1000000000"),
	}
)

// --- fakes ---

type fakeAuctions struct {
	err error
}

func (f fakeAuctions) FetchAuction(context.Context) (*domain.Auction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewAuction(domain.AuctionParams{
		ID:     7,
		Block:  19_000_000,
		Orders: []domain.Order{order},
		NativePrices: map[asset.TokenAddress]asset.Price{
			weth: asset.NewNativePrice(asset.MustParseTokenAmount("1000000000000000000")),
			usdc: asset.NewNativePrice(asset.MustParseTokenAmount("500000000000000000000000000")),
		},
	})
}

type fakeGas struct{}

func (fakeGas) GetGasPrice(context.Context) (*blockchainDomain.GasPrice, error) {
	return blockchainDomain.NewGasPrice(big.NewInt(20_000_000_000)), nil
}

type fakeSolver struct {
	solver    domain.Solver
	proposals []domain.Proposal
	err       error
	block     bool // wait for the deadline
}

func (f *fakeSolver) Solver() domain.Solver { return f.solver }

func (f *fakeSolver) Solve(ctx context.Context, a *domain.Auction) ([]domain.Proposal, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.proposals, f.err
}

type recorder struct {
	mu        sync.Mutex
	saved     []domain.RoundSummary
	settled   [][]domain.Ranked
	rounds    []domain.RoundResult
	errs      []error
	statuses  map[string]bool
	settleErr error
}

func newRecorder() *recorder { return &recorder{statuses: map[string]bool{}} }

func (r *recorder) SaveRound(_ context.Context, s domain.RoundSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, s)
	return nil
}

func (r *recorder) RecentRounds(context.Context, int) ([]domain.RoundSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RoundSummary(nil), r.saved...), nil
}

func (r *recorder) Settle(_ context.Context, _ *domain.Auction, winners []domain.Ranked) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, winners)
	return r.settleErr
}

func (r *recorder) Start(context.Context) error { return nil }
func (r *recorder) Stop() error                 { return nil }

func (r *recorder) ReportRound(round domain.RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
}

func (r *recorder) ReportSolverStatus(name string, responded bool, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[name] = responded
}

func (r *recorder) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

// panicArbitrator breaks the reference score contract.
type panicArbitrator struct {
	*domain.MaxScoreArbitrator
}

func (panicArbitrator) ComputeReferenceScores([]domain.Ranked) map[common.Address]domain.Score {
	panic("winner at rank 1 but expected 0")
}

// --- helpers ---

func one() *float64 {
	p := 1.0
	return &p
}

// validProposal fills the order at 2000 USDC, 1000 USDC of surplus,
// which is 5e17 wei at the auction's native prices.
func validProposal(id domain.SolutionID) domain.Proposal {
	sell := asset.MustParseTokenAmount("1000000000000000000")
	buy := asset.MustParseTokenAmount("2000000000")
	return domain.Proposal{
		ID:     id,
		Trades: []domain.Trade{{OrderUID: order.UID, ExecutedSell: sell, ExecutedBuy: buy}},
		Prices: map[asset.TokenAddress]asset.Price{
			weth: asset.NewNativePrice(buy),
			usdc: asset.NewNativePrice(sell),
		},
		Gas:                200_000,
		SuccessProbability: one(),
	}
}

func newRunner(t *testing.T, auctions app.AuctionSource, arb domain.Arbitrator, rec *recorder, solvers ...app.SolverClient) *app.RoundRunner {
	t.Helper()
	if arb == nil {
		arb = domain.NewMaxScoreArbitrator(domain.ArbitratorConfig{MaxWinners: 10})
	}
	r, err := app.NewRoundRunner(auctions, solvers, fakeGas{}, arb, rec, rec, rec,
		app.RoundConfig{
			SolveTimeout: 100 * time.Millisecond,
			Scorer:       domain.Scorer{DefaultGas: 250_000},
		},
		logger.NewNop(),
	)
	require.NoError(t, err)
	return r
}

// --- tests ---

func TestRoundRunner_PartialResultsAtDeadline(t *testing.T) {
	rec := newRecorder()
	fast := &fakeSolver{solver: fastSolver, proposals: []domain.Proposal{validProposal(1)}}
	slow := &fakeSolver{solver: slowSolver, block: true}
	runner := newRunner(t, fakeAuctions{}, nil, rec, fast, slow)

	start := time.Now()
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, 2, result.SolversQueried)
	assert.Equal(t, 1, result.SolversResponded)

	winner, ok := result.Winner()
	require.True(t, ok)
	assert.Equal(t, "fast", winner.Solver().Name)
	assert.Equal(t, "500000000000000000", winner.Solution().Score().Wei().String())
	assert.True(t, result.ReferenceScores[fastSolver.Address].IsZero(), "no competition, reference is zero")

	assert.Len(t, rec.saved, 1)
	assert.Equal(t, domain.AuctionID(7), rec.saved[0].AuctionID)
	require.Len(t, rec.settled, 1)
	assert.Len(t, rec.settled[0], 1)
	assert.Len(t, rec.rounds, 1)
	assert.True(t, rec.statuses["fast"])
	assert.False(t, rec.statuses["slow"])
}

func TestRoundRunner_NoWinnersNoSettlement(t *testing.T) {
	rec := newRecorder()
	failing := &fakeSolver{solver: fastSolver, err: errors.New("no route")}
	runner := newRunner(t, fakeAuctions{}, nil, rec, failing)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Ranking.Winners())
	assert.Empty(t, result.ReferenceScores)
	assert.Equal(t, 0, result.SolversResponded)
	assert.Empty(t, rec.settled)
	assert.Len(t, rec.saved, 1, "empty rounds are still recorded")
}

func TestRoundRunner_ContractViolationAborts(t *testing.T) {
	rec := newRecorder()
	fast := &fakeSolver{solver: fastSolver, proposals: []domain.Proposal{validProposal(1)}}
	arb := panicArbitrator{domain.NewMaxScoreArbitrator(domain.ArbitratorConfig{})}
	runner := newRunner(t, fakeAuctions{}, arb, rec, fast)

	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperror.CodeContractViolation, apperror.GetCode(err))
	assert.Contains(t, err.Error(), "expected 0")

	assert.Empty(t, rec.settled)
	assert.Empty(t, rec.saved)
	require.Len(t, rec.errs, 1)
}

func TestRoundRunner_AuctionFetchFails(t *testing.T) {
	rec := newRecorder()
	runner := newRunner(t, fakeAuctions{err: errors.New("orderbook down")}, nil, rec,
		&fakeSolver{solver: fastSolver})

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAuctionFetchFailed, apperror.GetCode(err))
	assert.Empty(t, rec.saved)
}

func TestRoundRunner_DropsMalformedProposals(t *testing.T) {
	dupTrade := validProposal(3)
	dupTrade.Trades = append(dupTrade.Trades, dupTrade.Trades[0])

	unprofitable := validProposal(4)
	reported := asset.EtherFromWei(1) // accepted, below the objective
	unprofitable.ReportedScore = &reported

	rec := newRecorder()
	fast := &fakeSolver{solver: fastSolver, proposals: []domain.Proposal{
		validProposal(1),
		validProposal(1), // duplicate id
		dupTrade,
		{ID: 5}, // no trades
	}}
	other := &fakeSolver{solver: slowSolver, proposals: []domain.Proposal{unprofitable}}
	runner := newRunner(t, fakeAuctions{}, nil, rec, fast, other)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	ranked := result.Ranking.Ranked()
	require.Len(t, ranked, 2)
	assert.Equal(t, "fast", ranked[0].Solver().Name)
	assert.True(t, ranked[0].IsWinner())
	assert.False(t, ranked[1].IsWinner(), "overlaps the winner")
	assert.Equal(t, "1", result.ReferenceScores[fastSolver.Address].Wei().String())
}

func TestCompetitionService_RoundPerBlock(t *testing.T) {
	rec := newRecorder()
	fast := &fakeSolver{solver: fastSolver, proposals: []domain.Proposal{validProposal(1)}}
	runner := newRunner(t, fakeAuctions{}, nil, rec, fast)

	blocks := make(chan *blockchainDomain.Block, 4)
	svc := app.NewCompetitionService(runner, blockFeed(blocks), rec, time.Hour, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })

	assert.True(t, svc.LastRoundAt().IsZero())

	blocks <- &blockchainDomain.Block{Number: 100}
	blocks <- &blockchainDomain.Block{Number: 100} // same head, skipped
	blocks <- &blockchainDomain.Block{Number: 101}

	require.Eventually(t, func() bool { return rec.savedCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, svc.LastRoundAt().IsZero())
	require.NoError(t, svc.Stop())
}

func TestCompetitionService_TickerWithoutBlocks(t *testing.T) {
	rec := newRecorder()
	fast := &fakeSolver{solver: fastSolver, proposals: []domain.Proposal{validProposal(1)}}
	runner := newRunner(t, fakeAuctions{}, nil, rec, fast)

	svc := app.NewCompetitionService(runner, nil, rec, 20*time.Millisecond, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))

	require.Eventually(t, func() bool { return rec.savedCount() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, svc.Stop())
}

func TestCompetitionService_StopEndsSubscription(t *testing.T) {
	rec := newRecorder()
	runner := newRunner(t, fakeAuctions{}, nil, rec)

	feed := &ctxFeed{subscribed: make(chan context.Context, 1)}
	svc := app.NewCompetitionService(runner, feed, rec, time.Hour, logger.NewNop())
	require.NoError(t, svc.Start(context.Background()))

	subCtx := <-feed.subscribed
	assert.NoError(t, subCtx.Err())

	require.NoError(t, svc.Stop())
	select {
	case <-subCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription outlived Stop")
	}
}

// ctxFeed hands out a channel that never delivers and records the
// subscription context.
type ctxFeed struct {
	subscribed chan context.Context
}

func (f *ctxFeed) SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error) {
	f.subscribed <- ctx
	return make(chan *blockchainDomain.Block), nil
}

type blockFeed chan *blockchainDomain.Block

func (f blockFeed) SubscribeBlocks(context.Context) (<-chan *blockchainDomain.Block, error) {
	return f, nil
}
