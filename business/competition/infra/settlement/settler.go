// Package settlement hands round winners to the settlement layer.
package settlement

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/logger"
)

const meterName = "github.com/fd1az/autopilot/business/competition/infra/settlement"

// LogSettler records winners without submitting transactions. It implements
// app.Settler.
type LogSettler struct {
	logger   logger.LoggerInterface
	registry *asset.Registry
	settled  metric.Int64Counter
}

// NewLogSettler creates a LogSettler. registry renders token symbols and
// may be nil.
func NewLogSettler(log logger.LoggerInterface, registry *asset.Registry) (*LogSettler, error) {
	if registry == nil {
		registry = asset.NewRegistry()
	}
	settled, err := otel.Meter(meterName).Int64Counter(
		"competition_settlements_total",
		metric.WithDescription("Winning solutions handed to settlement"),
	)
	if err != nil {
		return nil, err
	}
	return &LogSettler{logger: log, registry: registry, settled: settled}, nil
}

// Settle logs each winner in rank order.
func (s *LogSettler) Settle(ctx context.Context, auction *domain.Auction, winners []domain.Ranked) error {
	for i, w := range winners {
		sol := w.Solution()
		s.logger.Info(ctx, "settling solution",
			"auction", auction.ID(),
			"rank", i+1,
			"solver", w.Solver().Name,
			"solver_address", w.Solver().Address.Hex(),
			"solution", sol.ID(),
			"orders", sol.TradeCount(),
			"pairs", s.pairs(auction, sol),
			"score", sol.Score().String(),
		)
		s.settled.Add(ctx, 1, metric.WithAttributes(attribute.String("solver", w.Solver().Name)))
	}
	return nil
}

// pairs lists the traded pairs as symbols, in trade order.
func (s *LogSettler) pairs(auction *domain.Auction, sol *domain.Solution) []string {
	out := make([]string, 0, sol.TradeCount())
	for _, t := range sol.TradeList() {
		order, ok := auction.Order(t.OrderUID)
		if !ok {
			continue
		}
		pair, err := order.Pair()
		if err != nil {
			continue
		}
		out = append(out, s.registry.PairString(pair))
	}
	return out
}
