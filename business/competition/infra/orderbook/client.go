// Package orderbook fetches the current auction from the orderbook API.
package orderbook

import (
	"context"
	"encoding/json"
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
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/circuitbreaker"
	"github.com/fd1az/autopilot/internal/httpclient"
	"github.com/fd1az/autopilot/internal/logger"
	"github.com/fd1az/autopilot/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/autopilot/business/competition/infra/orderbook"

	auctionEndpoint = "/api/v1/auction"
	defaultTimeout  = 5 * time.Second
)

// Config holds configuration for the orderbook client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	WrappedNative     asset.TokenAddress
}

// Client implements app.AuctionSource over HTTP.
type Client struct {
	client  *httpclient.InstrumentedClient
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*wire.Auction]
	config  Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a new orderbook client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("orderbook"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("orderbook")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client:  client,
		limiter: ratelimit.NewWithBurst(cfg.RequestsPerSecond, cfg.Burst),
		cb:      circuitbreaker.New[*wire.Auction](cbCfg),
		config:  cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// FetchAuction fetches and validates the current auction.
func (c *Client) FetchAuction(ctx context.Context) (*domain.Auction, error) {
	ctx, span := c.tracer.Start(ctx, "orderbook.fetch_auction")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(span, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithContext("orderbook"), apperror.WithCause(err)))
	}

	dto, err := c.cb.Execute(func() (*wire.Auction, error) {
		var result wire.Auction
		_, err := c.client.NewRequest(
			httpclient.WithLabels(httpclient.Label{Key: "endpoint", Value: "auction"}),
			httpclient.WithResponseErrorHandler(orderbookErrorHandler),
		).
			SetResult(&result).
			Get(ctx, auctionEndpoint)
		if err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		return nil, c.fail(span, apperror.Wrap(err, apperror.CodeAuctionFetchFailed, "GET "+auctionEndpoint))
	}

	auction, err := dto.ToDomain(c.config.WrappedNative)
	if err != nil {
		return nil, c.fail(span, apperror.New(apperror.CodeInvalidAuction,
			apperror.WithContext(fmt.Sprintf("auction %d", dto.ID)),
			apperror.WithCause(err)))
	}

	span.SetAttributes(
		attribute.Int64("auction.id", int64(auction.ID())),
		attribute.Int("auction.orders", auction.OrderCount()),
	)
	c.logger.Debug(ctx, "fetched auction",
		"auction", auction.ID(),
		"block", auction.Block(),
		"orders", auction.OrderCount())

	return auction, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// APIError is the error body of the orderbook API.
type APIError struct {
	StatusCode  int    `json:"-"`
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orderbook %d %s: %s", e.StatusCode, e.ErrorType, e.Description)
}

func orderbookErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorType != "" {
		apiErr.StatusCode = statusCode
		return &apiErr
	}
	return httpclient.DefaultErrorHandler(statusCode, body)
}
