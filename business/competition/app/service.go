package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/logger"
)

// BlockSource feeds new chain heads. *blockchain/app.BlockchainService
// satisfies it.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
}

// CompetitionService runs a round per new block, or per RoundInterval when
// no block feed is available. Rounds never overlap: heads arriving while a
// round runs are skipped.
type CompetitionService struct {
	runner   *RoundRunner
	blocks   BlockSource
	reporter Reporter
	interval time.Duration
	logger   logger.LoggerInterface

	lastRound atomic.Int64 // unix nanos of the last finished round
	lastBlock atomic.Uint64

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// NewCompetitionService creates a CompetitionService. blocks may be nil.
func NewCompetitionService(
	runner *RoundRunner,
	blocks BlockSource,
	reporter Reporter,
	interval time.Duration,
	log logger.LoggerInterface,
) *CompetitionService {
	return &CompetitionService{
		runner:   runner,
		blocks:   blocks,
		reporter: reporter,
		interval: interval,
		logger:   log,
	}
}

// Start begins the round loop.
func (s *CompetitionService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting competition service", "interval", s.interval)

	if s.reporter != nil {
		if err := s.reporter.Start(ctx); err != nil {
			return err
		}
	}

	// the subscription lives as long as the loop, Stop cancels both
	ctx, cancel := context.WithCancel(ctx)

	var blocks <-chan *blockchainDomain.Block
	if s.blocks != nil {
		ch, err := s.blocks.SubscribeBlocks(ctx)
		if err != nil {
			s.logger.Warn(ctx, "block subscription unavailable, using ticker", "error", err)
		} else {
			blocks = ch
		}
	}

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, blocks, done)
	return nil
}

func (s *CompetitionService) run(ctx context.Context, blocks <-chan *blockchainDomain.Block, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "competition service stopping", "reason", ctx.Err())
			return
		case block, ok := <-blocks:
			if !ok {
				blocks = nil
				continue
			}
			if block == nil || block.Number <= s.lastBlock.Load() {
				continue
			}
			s.lastBlock.Store(block.Number)
			s.logger.Debug(ctx, "new block", "number", block.Number, "hash", block.Hash.Hex())
			if cr, ok := s.reporter.(ChainReporter); ok {
				cr.ReportBlock(block.Number, block.Timestamp)
			}
			s.runRound(ctx)
		case <-tick:
			// the ticker only drives rounds while no block arrived recently
			if blocks != nil && time.Since(s.LastRoundAt()) < s.interval {
				continue
			}
			s.runRound(ctx)
		}
	}
}

func (s *CompetitionService) runRound(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		// already logged and reported by the runner
		return
	}
	s.lastRound.Store(time.Now().UnixNano())
}

// RunOnce runs a single round synchronously.
func (s *CompetitionService) RunOnce(ctx context.Context) (*domain.RoundResult, error) {
	result, err := s.runner.Run(ctx)
	if err == nil {
		s.lastRound.Store(time.Now().UnixNano())
	}
	return result, err
}

// LastRoundAt returns when the last successful round finished, zero if
// none has.
func (s *CompetitionService) LastRoundAt() time.Time {
	n := s.lastRound.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Stop ends the loop, waits for an in-flight round and stops the reporter.
// Calls after the first return the first result.
func (s *CompetitionService) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info(context.Background(), "stopping competition service")

		s.mu.Lock()
		cancel, done := s.cancel, s.done
		s.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		if s.reporter != nil {
			s.stopErr = s.reporter.Stop()
		}
	})
	return s.stopErr
}
