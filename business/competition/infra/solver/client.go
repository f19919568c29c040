// Package solver queries solver engines over HTTP.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/business/competition/infra/wire"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/circuitbreaker"
	"github.com/fd1az/autopilot/internal/httpclient"
	"github.com/fd1az/autopilot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/autopilot/business/competition/infra/solver"

	solveEndpoint = "/solve"
)

// Config describes one solver endpoint.
type Config struct {
	Solver  domain.Solver
	BaseURL string
	// Timeout bounds a request when the context has no deadline.
	Timeout time.Duration
}

// Client implements app.SolverClient over HTTP.
type Client struct {
	client *httpclient.InstrumentedClient
	cb     *circuitbreaker.CircuitBreaker[*wire.SolveResponse]
	config Config
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewClient creates a solver client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	opts := []httpclient.ClientOption{
		httpclient.WithProviderName("solver-" + cfg.Solver.Name),
		httpclient.WithBaseURL(cfg.BaseURL),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithRequestTimeout(cfg.Timeout))
	}
	client, err := httpclient.NewInstrumentedClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("solver-" + cfg.Solver.Name)
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client: client,
		cb:     circuitbreaker.New[*wire.SolveResponse](cbCfg),
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Solver implements app.SolverClient.
func (c *Client) Solver() domain.Solver {
	return c.config.Solver
}

// Solve posts the auction and returns the solver's proposals.
func (c *Client) Solve(ctx context.Context, auction *domain.Auction) ([]domain.Proposal, error) {
	ctx, span := c.tracer.Start(ctx, "solver.solve",
		trace.WithAttributes(
			attribute.String("solver", c.config.Solver.Name),
			attribute.Int64("auction.id", int64(auction.ID())),
		),
	)
	defer span.End()

	req := wire.SolveRequest{Auction: wire.AuctionFromDomain(auction)}

	resp, err := c.cb.Execute(func() (*wire.SolveResponse, error) {
		var result wire.SolveResponse
		_, err := c.client.NewRequest(
			httpclient.WithLabels(httpclient.Label{Key: "endpoint", Value: "solve"}),
		).
			SetBody(req).
			SetResult(&result).
			Post(ctx, solveEndpoint)
		if err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperror.Wrap(err, apperror.CodeSolverRequestFailed, c.config.Solver.Name)
	}

	proposals := make([]domain.Proposal, 0, len(resp.Solutions))
	for _, s := range resp.Solutions {
		proposals = append(proposals, s.ToDomain())
	}

	span.SetAttributes(attribute.Int("solver.proposals", len(proposals)))
	c.logger.Debug(ctx, "solver answered",
		"solver", c.config.Solver.Name,
		"auction", auction.ID(),
		"proposals", len(proposals))

	return proposals, nil
}
