package app

import (
	"context"
	"sync/atomic"

	"github.com/fd1az/autopilot/business/blockchain/domain"
)

// BlockchainService is the block and gas price source of the competition
// loop. It remembers the last head it relayed.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
	head       atomic.Pointer[domain.Block]
}

// NewBlockchainService creates a BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// SubscribeBlocks relays the subscriber's heads, recording each one. The
// returned channel closes with the upstream channel or ctx.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	in, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *domain.Block, cap(in))
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case block, ok := <-in:
				if !ok {
					return
				}
				if block != nil {
					s.head.Store(block)
				}
				select {
				case out <- block:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Head returns the last relayed head, nil before the first one.
func (s *BlockchainService) Head() *domain.Block {
	return s.head.Load()
}

func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}
