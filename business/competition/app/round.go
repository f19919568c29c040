package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/apm"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/logger"
)

// RoundConfig holds round runner settings.
type RoundConfig struct {
	// SolveTimeout is the time solvers get, measured from the round start.
	SolveTimeout time.Duration
	Scorer       domain.Scorer
}

// RoundRunner runs one competition round end to end: fetch the auction,
// collect proposals until the deadline, score them, select winners,
// compute reference scores, then persist, settle and report.
type RoundRunner struct {
	auctions   AuctionSource
	solvers    []SolverClient
	gas        GasPriceSource
	arbitrator domain.Arbitrator
	store      Store
	settler    Settler
	reporter   Reporter
	cfg        RoundConfig
	logger     logger.LoggerInterface
	tracer     apm.Tracer
	metrics    *roundMetrics
	now        func() time.Time
}

// NewRoundRunner creates a RoundRunner. store and settler may be nil.
func NewRoundRunner(
	auctions AuctionSource,
	solvers []SolverClient,
	gas GasPriceSource,
	arbitrator domain.Arbitrator,
	store Store,
	settler Settler,
	reporter Reporter,
	cfg RoundConfig,
	log logger.LoggerInterface,
) (*RoundRunner, error) {
	m, err := newRoundMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return &RoundRunner{
		auctions:   auctions,
		solvers:    solvers,
		gas:        gas,
		arbitrator: arbitrator,
		store:      store,
		settler:    settler,
		reporter:   reporter,
		cfg:        cfg,
		logger:     log,
		tracer:     apm.NewTracer(tracerName),
		metrics:    m,
		now:        time.Now,
	}, nil
}

// solverResponse is what one solver returned, or failed to.
type solverResponse struct {
	solver    domain.Solver
	proposals []domain.Proposal
	err       error
	latency   time.Duration
}

// Run executes one round. Failing to fetch the auction or the gas price
// aborts the round, as does a contract violation inside arbitration. A
// round without valid solutions is not an error.
func (r *RoundRunner) Run(ctx context.Context) (*domain.RoundResult, error) {
	started := r.now()
	id := uuid.New()

	ctx, span := r.tracer.StartSpanFromContext(ctx, "competition.round")
	defer span.End()
	span.SetAttributes(attribute.String("round.id", id.String()))

	result, err := r.run(ctx, id, started)
	if err != nil {
		span.NoticeError(err)
		r.metrics.roundsFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("code", string(apperror.GetCode(err))),
		))
		r.logRoundError(ctx, id, err)
		if r.reporter != nil {
			r.reporter.ReportError(err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("auction.id", int64(result.Auction.ID())),
		attribute.Int("round.solutions", len(result.Ranking.Ranked())),
		attribute.Int("round.winners", len(result.Ranking.Winners())),
	)
	r.metrics.rounds.Add(ctx, 1)
	r.metrics.roundDuration.Record(ctx, result.Duration().Seconds())
	r.metrics.winners.Record(ctx, int64(len(result.Ranking.Winners())))
	r.metrics.solutionsFiltered.Add(ctx, int64(len(result.Ranking.FilteredOut())))

	r.finish(ctx, result)
	return result, nil
}

func (r *RoundRunner) run(ctx context.Context, id uuid.UUID, started time.Time) (*domain.RoundResult, error) {
	auction, err := r.auctions.FetchAuction(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeAuctionFetchFailed, "fetch auction")
	}
	deadline := started.Add(r.cfg.SolveTimeout)
	auction = auction.WithDeadline(deadline)

	gasPrice, err := r.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "gas price")
	}

	if cr, ok := r.reporter.(ChainReporter); ok {
		cr.ReportGasPrice(gasPrice.Gwei())
	}

	r.logger.Debug(ctx, "round started",
		"round", id,
		"auction", auction.ID(),
		"orders", auction.OrderCount(),
		"gas_gwei", gasPrice.Gwei(),
		"deadline", deadline,
	)

	responses := r.collect(ctx, auction, deadline)

	responded := 0
	var participants []domain.Unranked
	for _, resp := range responses {
		if resp.err == nil {
			responded++
		}
		participants = append(participants, r.toParticipants(ctx, auction, resp, gasPrice.Wei)...)
	}

	ranking, references, err := r.arbitrate(participants, auction)
	if err != nil {
		return nil, err
	}

	return &domain.RoundResult{
		ID:               id,
		Auction:          auction,
		Ranking:          ranking,
		ReferenceScores:  references,
		SolversQueried:   len(r.solvers),
		SolversResponded: responded,
		StartedAt:        started,
		FinishedAt:       r.now(),
	}, nil
}

// collect queries every solver concurrently and returns what arrived
// before the deadline. Late solvers are reported as timed out; their
// goroutines finish into the buffered channel.
func (r *RoundRunner) collect(ctx context.Context, auction *domain.Auction, deadline time.Time) []solverResponse {
	solveCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	begin := time.Now()
	results := make(chan solverResponse, len(r.solvers))
	for _, client := range r.solvers {
		go func() {
			start := time.Now()
			proposals, err := client.Solve(solveCtx, auction)
			results <- solverResponse{
				solver:    client.Solver(),
				proposals: proposals,
				err:       err,
				latency:   time.Since(start),
			}
		}()
	}

	responses := make([]solverResponse, 0, len(r.solvers))
	answered := make(map[string]bool, len(r.solvers))
	for len(responses) < len(r.solvers) {
		select {
		case resp := <-results:
			responses = append(responses, resp)
			answered[resp.solver.Name] = true
			r.observeSolver(ctx, resp)
		case <-solveCtx.Done():
			for _, client := range r.solvers {
				s := client.Solver()
				if answered[s.Name] {
					continue
				}
				late := solverResponse{solver: s, err: solveCtx.Err(), latency: time.Since(begin)}
				responses = append(responses, late)
				r.observeSolver(ctx, late)
			}
			return responses
		}
	}
	return responses
}

func (r *RoundRunner) observeSolver(ctx context.Context, resp solverResponse) {
	attrs := metric.WithAttributes(attribute.String("solver", resp.solver.Name))
	r.metrics.solverLatency.Record(ctx, resp.latency.Seconds(), attrs)
	if resp.err != nil {
		r.metrics.solverErrors.Add(ctx, 1, attrs)
		level := r.logger.Warn
		if errors.Is(resp.err, context.DeadlineExceeded) {
			level = r.logger.Info
		}
		level(ctx, "solver returned no solutions",
			"solver", resp.solver.Name,
			"latency", resp.latency,
			"error", resp.err,
		)
	} else {
		r.metrics.proposals.Add(ctx, int64(len(resp.proposals)), attrs)
	}
	if r.reporter != nil {
		r.reporter.ReportSolverStatus(resp.solver.Name, resp.err == nil, len(resp.proposals), resp.latency)
	}
}

// toParticipants scores the proposals of one solver. Duplicate ids,
// duplicate trades and unscorable proposals are dropped here; everything
// else is left to the arbitrator's filter.
func (r *RoundRunner) toParticipants(ctx context.Context, auction *domain.Auction, resp solverResponse, gasPriceWei *big.Int) []domain.Unranked {
	if resp.err != nil || len(resp.proposals) == 0 {
		return nil
	}

	seen := make(map[domain.SolutionID]bool, len(resp.proposals))
	out := make([]domain.Unranked, 0, len(resp.proposals))
	for _, p := range resp.proposals {
		if seen[p.ID] {
			r.reject(ctx, resp.solver, p.ID, "duplicate_id", nil)
			continue
		}
		seen[p.ID] = true

		if hasDuplicateTrade(p.Trades) {
			r.reject(ctx, resp.solver, p.ID, "duplicate_trade", nil)
			continue
		}
		if len(p.Trades) == 0 {
			r.reject(ctx, resp.solver, p.ID, "empty", nil)
			continue
		}

		score, err := r.cfg.Scorer.Score(auction, p, gasPriceWei)
		if err != nil {
			r.reject(ctx, resp.solver, p.ID, "score", err)
			continue
		}

		solution := domain.NewSolution(p.ID, resp.solver.Address, p.Trades, p.Prices, score)
		out = append(out, domain.NewParticipant(resp.solver.Name, solution))
	}
	return out
}

func (r *RoundRunner) reject(ctx context.Context, s domain.Solver, id domain.SolutionID, reason string, err error) {
	r.metrics.proposalsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("solver", s.Name),
		attribute.String("reason", reason),
	))
	r.logger.Debug(ctx, "proposal rejected",
		"solver", s.Name,
		"solution", id,
		"reason", reason,
		"error", err,
	)
}

func hasDuplicateTrade(trades []domain.Trade) bool {
	seen := make(map[domain.OrderUid]bool, len(trades))
	for _, t := range trades {
		if seen[t.OrderUID] {
			return true
		}
		seen[t.OrderUID] = true
	}
	return false
}

// arbitrate runs winner selection. Panics are contract violations and
// surface as apperror.CodeContractViolation.
func (r *RoundRunner) arbitrate(participants []domain.Unranked, auction *domain.Auction) (ranking domain.Ranking, refs map[common.Address]domain.Score, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperror.FromPanic(rec, fmt.Sprintf("arbitrate auction %d", auction.ID()))
		}
	}()

	ranking = r.arbitrator.Arbitrate(participants, auction)
	refs = r.arbitrator.ComputeReferenceScores(ranking.Ranked())
	return ranking, refs, nil
}

// finish persists, settles and reports a completed round. Failures here
// are logged; the round outcome stands.
func (r *RoundRunner) finish(ctx context.Context, result *domain.RoundResult) {
	summary := result.Summary()

	if r.store != nil {
		if err := r.store.SaveRound(ctx, summary); err != nil {
			r.logger.Error(ctx, "failed to save round", "round", result.ID, "error", err)
		}
	}

	winners := result.Ranking.Winners()
	if len(winners) > 0 && r.settler != nil {
		if err := r.settler.Settle(ctx, result.Auction, winners); err != nil {
			err = apperror.Wrap(err, apperror.CodeSettlementFailed, fmt.Sprintf("auction %d", result.Auction.ID()))
			r.logger.Error(ctx, "settlement failed", "round", result.ID, "error", err)
			if r.reporter != nil {
				r.reporter.ReportError(err)
			}
		}
	}

	args := []any{
		"round", result.ID,
		"auction", summary.AuctionID,
		"solutions", summary.Solutions,
		"filtered_out", summary.FilteredOut,
		"winners", len(winners),
		"duration", result.Duration(),
	}
	if best, ok := result.Winner(); ok {
		args = append(args, "winner", best.Solver().Name, "score", best.Solution().Score().String())
	}
	r.logger.Info(ctx, "round finished", args...)

	if r.reporter != nil {
		r.reporter.ReportRound(*result)
	}
}

func (r *RoundRunner) logRoundError(ctx context.Context, id uuid.UUID, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		args := append([]any{"round", id}, appErr.LogFields()...)
		r.logger.Error(ctx, "round aborted", args...)
		return
	}
	r.logger.Error(ctx, "round aborted", "round", id, "error", err)
}
