package settlement_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/business/competition/infra/settlement"
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/logger"
)

func TestLogSettler(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "autopilot", nil)

	s, err := settlement.NewLogSettler(log, asset.DefaultRegistry)
	require.NoError(t, err)

	weth := asset.HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc := asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	uid := domain.NewOrderUid(common.Hash{9}, common.HexToAddress("0x01"), 1_900_000_000)

	auction, err := domain.NewAuction(domain.AuctionParams{
		ID: 3,
		Orders: []domain.Order{{
			UID: uid, SellToken: weth, BuyToken: usdc, Side: domain.SideSell,
			SellAmount: asset.NewTokenAmount(100), BuyAmount: asset.NewTokenAmount(100),
		}},
		NativePrices: map[asset.TokenAddress]asset.Price{
			weth: asset.NewNativePrice(asset.NewTokenAmount(1_000_000_000_000_000_000)),
			usdc: asset.NewNativePrice(asset.NewTokenAmount(1_000_000_000_000_000_000)),
		},
		Deadline: time.Now().Add(time.Second),
	})
	require.NoError(t, err)

	sol := domain.NewSolution(1, common.HexToAddress("0x0a"),
		[]domain.Trade{{OrderUID: uid, ExecutedSell: asset.NewTokenAmount(100), ExecutedBuy: asset.NewTokenAmount(110)}},
		map[asset.TokenAddress]asset.Price{weth: mustPrice(t, "110"), usdc: mustPrice(t, "100")},
		domain.ScoreFromWei(10),
	)
	arb := domain.NewMaxScoreArbitrator(domain.ArbitratorConfig{MaxWinners: 1})
	ranking := arb.Arbitrate([]domain.Unranked{domain.NewParticipant("baseline", sol)}, auction)
	require.Len(t, ranking.Winners(), 1)

	require.NoError(t, s.Settle(context.Background(), auction, ranking.Winners()))
	assert.Contains(t, buf.String(), "settling solution")
	assert.Contains(t, buf.String(), "baseline")
	assert.Contains(t, buf.String(), asset.DefaultRegistry.PairString(mustPair(t, weth, usdc)))
}

func mustPrice(t *testing.T, s string) asset.Price {
	t.Helper()
	p, err := asset.ParsePrice(s)
	require.NoError(t, err)
	return p
}

func mustPair(t *testing.T, sell, buy asset.TokenAddress) asset.DirectedTokenPair {
	t.Helper()
	p, err := asset.NewDirectedTokenPair(sell, buy)
	require.NoError(t, err)
	return p
}
