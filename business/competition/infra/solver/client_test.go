package solver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/business/competition/infra/solver"
	"github.com/fd1az/autopilot/business/competition/infra/wire"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/logger"
)

var (
	weth = asset.HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	order = domain.Order{
		UID:        domain.NewOrderUid(common.Hash{1}, common.HexToAddress("0xff"), 1_900_000_000),
		SellToken:  weth,
		BuyToken:   usdc,
		Side:       domain.SideSell,
		SellAmount: asset.MustParseTokenAmount("1000000000000000000"),
		BuyAmount:  asset.MustParseTokenAmount("1000000000"),
	}
)

func testAuction(t *testing.T) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(domain.AuctionParams{
		ID:     5,
		Orders: []domain.Order{order},
		NativePrices: map[asset.TokenAddress]asset.Price{
			weth: asset.NewNativePrice(asset.MustParseTokenAmount("1000000000000000000")),
		},
		FeePolicies: map[domain.OrderUid][]domain.FeePolicy{order.UID: {domain.SurplusFee(0.5, 0.01)}},
		Deadline:    time.Unix(1_700_000_000, 0).UTC(),
	})
	require.NoError(t, err)
	return a
}

func newClient(t *testing.T, handler http.HandlerFunc) *solver.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := solver.NewClient(solver.Config{
		Solver:  domain.Solver{Name: "baseline", Address: common.HexToAddress("0x0a")},
		BaseURL: srv.URL,
	}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestSolve(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solve", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req wire.SolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(5), req.ID)
		require.Len(t, req.Orders, 1)
		require.Len(t, req.Orders[0].ProtocolFees, 1)
		assert.Equal(t, "surplus", req.Orders[0].ProtocolFees[0].Kind)
		require.NotNil(t, req.Deadline)

		_, _ = w.Write([]byte(`{"solutions": [{
		  "id": 1,
		  "trades": [{"order": "` + order.UID.String() + `", "executedSell": "1000000000000000000", "executedBuy": "2000000000"}],
		  "prices": {"` + weth.Hex() + `": "2000000000", "` + usdc.Hex() + `": "1000000000000000000"},
		  "successProbability": 0.97
		}]}`))
	})

	proposals, err := c.Solve(context.Background(), testAuction(t))
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, domain.SolutionID(1), proposals[0].ID)
	require.NotNil(t, proposals[0].SuccessProbability)
	assert.InDelta(t, 0.97, *proposals[0].SuccessProbability, 1e-9)
	assert.Equal(t, order.UID, proposals[0].Trades[0].OrderUID)
	assert.Equal(t, "baseline", c.Solver().Name)
}

func TestSolve_Deadline(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Solve(ctx, testAuction(t))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSolverRequestFailed, apperror.GetCode(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSolve_ServerError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no solution", http.StatusInternalServerError)
	})

	_, err := c.Solve(context.Background(), testAuction(t))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSolverRequestFailed, apperror.GetCode(err))
}
