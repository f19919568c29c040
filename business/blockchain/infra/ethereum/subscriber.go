// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/circuitbreaker"
	"github.com/fd1az/autopilot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/autopilot/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/autopilot/business/blockchain/infra/ethereum"
)

// SubscriberConfig holds configuration for the Ethereum subscriber.
type SubscriberConfig struct {
	WSURL          string        // WebSocket endpoint (primary)
	HTTPURL        string        // HTTP endpoint (fallback)
	ChainID        uint64        // expected chain, 0 skips the check
	PollInterval   time.Duration // Polling interval for HTTP fallback
	InitialBackoff time.Duration // first reconnect delay
	MaxBackoff     time.Duration // reconnect delay ceiling
	BufferSize     int           // Block channel buffer size
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   4 * time.Second,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BufferSize:     16,
	}
}

// subscriberMetrics holds OTEL metric instruments.
type subscriberMetrics struct {
	blocksReceived   metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	blockLatency     metric.Float64Histogram
	httpFallbackUsed metric.Int64Counter
}

// Subscriber implements BlockSubscriber. It follows new heads over
// WebSocket and falls back to polling over HTTP, reconnecting with
// exponential backoff.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface

	wsClient   *ethclient.Client
	httpClient *ethclient.Client
	clientMu   sync.RWMutex

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	usingHTTP  atomic.Bool
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	blocks  chan *domain.Block
	done    chan struct{}
	closeMu sync.Mutex
	closed  atomic.Bool

	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a new Ethereum block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.WSURL == "" && cfg.HTTPURL == "" {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "no ethereum endpoint configured")
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-http")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.httpCB = circuitbreaker.New[*types.Header](cbCfg)

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total Ethereum blocks received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Total Ethereum subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Ethereum connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	s.metrics.blockLatency, err = meter.Float64Histogram(
		"eth_block_latency_ms",
		metric.WithDescription("Latency from block timestamp to receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"eth_http_fallback_total",
		metric.WithDescription("Times HTTP fallback was used"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Connect dials the configured endpoints and verifies the chain id.
func (s *Subscriber) Connect(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "eth.connect")
	defer span.End()

	s.setState(domain.StateConnecting)

	wsErr := s.dial(ctx, s.config.WSURL, &s.wsClient)
	httpErr := s.dial(ctx, s.config.HTTPURL, &s.httpClient)
	if wsErr != nil && httpErr != nil {
		err := errors.Join(wsErr, httpErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "both connections failed")
		s.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect via WS and HTTP"))
	}

	if wsErr != nil && s.config.WSURL != "" {
		s.logger.Warn(ctx, "ws connection failed, using http", "error", wsErr)
	}

	if err := s.verifyChainID(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wrong chain")
		return err
	}

	s.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "connected")
	return nil
}

func (s *Subscriber) dial(ctx context.Context, url string, dst **ethclient.Client) error {
	if url == "" {
		return errors.New("url not configured")
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	s.clientMu.Lock()
	*dst = client
	s.clientMu.Unlock()
	return nil
}

func (s *Subscriber) verifyChainID(ctx context.Context) error {
	if s.config.ChainID == 0 {
		return nil
	}
	client := s.anyClient()
	if client == nil {
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get chain id"))
	}
	if id.Cmp(new(big.Int).SetUint64(s.config.ChainID)) != 0 {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("node is on chain %s, expected %d", id, s.config.ChainID)))
	}
	return nil
}

func (s *Subscriber) anyClient() *ethclient.Client {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	if s.wsClient != nil && !s.usingHTTP.Load() {
		return s.wsClient
	}
	return s.httpClient
}

// Subscribe starts listening for new blocks and returns a channel.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	if s.closed.Load() {
		return nil, errors.New("subscriber is closed")
	}

	s.clientMu.RLock()
	hasWS, hasHTTP := s.wsClient != nil, s.httpClient != nil
	s.clientMu.RUnlock()

	switch {
	case hasWS:
		go s.run(ctx)
	case hasHTTP:
		s.usingHTTP.Store(true)
		go s.runHTTPPoller(ctx)
	default:
		return nil, apperror.New(apperror.CodeEthereumSubscribeFailed,
			apperror.WithContext("subscribe called before connect"))
	}
	return s.blocks, nil
}

// run follows new heads over WebSocket, reconnecting with backoff until
// the WebSocket endpoint gives up, then switches to HTTP polling.
func (s *Subscriber) run(ctx context.Context) {
	backoff := s.config.InitialBackoff
	for {
		err := s.followHeads(ctx)
		if ctx.Err() != nil || s.closed.Load() {
			return
		}
		s.metrics.subscribeErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "ws subscription ended", "error", err, "retry_in", backoff)
		s.setState(domain.StateReconnecting)
		s.reconnects.Add(1)

		if !s.sleep(ctx, backoff) {
			return
		}
		if err := s.dial(ctx, s.config.WSURL, &s.wsClient); err != nil {
			if backoff >= s.config.MaxBackoff && s.config.HTTPURL != "" {
				s.logger.Warn(ctx, "ws unavailable, switching to http polling", "error", err)
				s.usingHTTP.Store(true)
				s.metrics.httpFallbackUsed.Add(ctx, 1)
				s.setState(domain.StateConnected)
				s.runHTTPPoller(ctx)
				return
			}
			backoff = min(2*backoff, s.config.MaxBackoff)
			continue
		}
		backoff = s.config.InitialBackoff
		s.setState(domain.StateConnected)
	}
}

func (s *Subscriber) followHeads(ctx context.Context) error {
	s.clientMu.RLock()
	client := s.wsClient
	s.clientMu.RUnlock()
	if client == nil {
		return errors.New("ws client not connected")
	}

	headers := make(chan *types.Header, s.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	s.logger.Info(ctx, "subscribed to new heads via ws")
	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case header := <-headers:
			if header != nil {
				s.processHeader(ctx, header, false)
			}
		}
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// runHTTPPoller polls the chain head at a fixed interval.
func (s *Subscriber) runHTTPPoller(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info(ctx, "starting http polling", "interval", s.config.PollInterval)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollLatestBlock(ctx)
		}
	}
}

func (s *Subscriber) pollLatestBlock(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	s.clientMu.RLock()
	client := s.httpClient
	s.clientMu.RUnlock()
	if client == nil {
		span.AddEvent("no_http_client")
		return
	}

	header, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error(ctx, "http poll failed", "error", err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		return
	}

	if header.Number.Uint64() <= s.lastBlock.Load() {
		span.AddEvent("duplicate_block")
		return
	}

	s.processHeader(ctx, header, true)
	span.SetStatus(codes.Ok, "polled")
}

// processHeader converts and emits a block header. Blocks are dropped
// when the consumer lags; rounds only care about the newest head.
func (s *Subscriber) processHeader(ctx context.Context, header *types.Header, fromHTTP bool) {
	block := headerToBlock(header)

	latency := time.Since(block.Timestamp)
	s.metrics.blockLatency.Record(ctx, float64(latency.Milliseconds()),
		metric.WithAttributes(attribute.Bool("from_http", fromHTTP)))
	s.lastBlock.Store(block.Number)

	select {
	case s.blocks <- block:
		s.metrics.blocksReceived.Add(ctx, 1)
		s.logger.Debug(ctx, "block received",
			"number", block.Number,
			"hash", block.Hash.Hex()[:10],
			"latency_ms", latency.Milliseconds())
	default:
		s.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
		BaseFee:   header.BaseFee,
	}
}

// LatestBlock retrieves the most recent block.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	client := s.anyClient()
	if client == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}

	header, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest block"))
	}

	span.SetStatus(codes.Ok, "fetched")
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Close gracefully closes the subscriber.
func (s *Subscriber) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed.Load() {
		return nil
	}
	s.closed.Store(true)
	close(s.done)

	s.clientMu.Lock()
	if s.wsClient != nil {
		s.wsClient.Close()
		s.wsClient = nil
	}
	if s.httpClient != nil {
		s.httpClient.Close()
		s.httpClient = nil
	}
	s.clientMu.Unlock()

	s.setState(domain.StateDisconnected)
	return nil
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	s.metrics.connectionState.Record(context.Background(), state.GaugeValue())
}
