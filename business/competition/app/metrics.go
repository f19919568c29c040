package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "github.com/fd1az/autopilot/business/competition/app"
	meterName  = "github.com/fd1az/autopilot/business/competition/app"
)

// roundMetrics holds OTEL metric instruments for rounds.
type roundMetrics struct {
	rounds            metric.Int64Counter
	roundsFailed      metric.Int64Counter
	roundDuration     metric.Float64Histogram
	proposals         metric.Int64Counter
	proposalsRejected metric.Int64Counter
	solutionsFiltered metric.Int64Counter
	winners           metric.Int64Histogram
	solverLatency     metric.Float64Histogram
	solverErrors      metric.Int64Counter
}

func newRoundMetrics() (*roundMetrics, error) {
	meter := otel.Meter(meterName)
	m := &roundMetrics{}
	var err error

	if m.rounds, err = meter.Int64Counter(
		"competition_rounds_total",
		metric.WithDescription("Completed competition rounds"),
		metric.WithUnit("{round}"),
	); err != nil {
		return nil, err
	}
	if m.roundsFailed, err = meter.Int64Counter(
		"competition_rounds_failed_total",
		metric.WithDescription("Rounds aborted before arbitration finished"),
		metric.WithUnit("{round}"),
	); err != nil {
		return nil, err
	}
	if m.roundDuration, err = meter.Float64Histogram(
		"competition_round_duration_seconds",
		metric.WithDescription("Wall time of a round"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.proposals, err = meter.Int64Counter(
		"competition_proposals_total",
		metric.WithDescription("Proposals received from solvers"),
		metric.WithUnit("{proposal}"),
	); err != nil {
		return nil, err
	}
	if m.proposalsRejected, err = meter.Int64Counter(
		"competition_proposals_rejected_total",
		metric.WithDescription("Proposals dropped before arbitration"),
		metric.WithUnit("{proposal}"),
	); err != nil {
		return nil, err
	}
	if m.solutionsFiltered, err = meter.Int64Counter(
		"competition_solutions_filtered_total",
		metric.WithDescription("Solutions discarded by the arbitrator"),
		metric.WithUnit("{solution}"),
	); err != nil {
		return nil, err
	}
	if m.winners, err = meter.Int64Histogram(
		"competition_winners",
		metric.WithDescription("Winning solutions per round"),
		metric.WithUnit("{solution}"),
	); err != nil {
		return nil, err
	}
	if m.solverLatency, err = meter.Float64Histogram(
		"competition_solver_latency_seconds",
		metric.WithDescription("Time until a solver answered"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.solverErrors, err = meter.Int64Counter(
		"competition_solver_errors_total",
		metric.WithDescription("Solver requests that failed or timed out"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}
