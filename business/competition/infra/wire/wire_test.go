package wire_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/business/competition/infra/wire"
	"github.com/fd1az/autopilot/internal/asset"
)

const uid = "0x" +
	"0100000000000000000000000000000000000000000000000000000000000000" +
	"00000000000000000000000000000000000000ff" +
	"713fb300"

const auctionJSON = `{
  "id": 7,
  "block": 19000000,
  "orders": [{
    "uid": "` + uid + `",
    "sellToken": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
    "buyToken": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
    "sellAmount": "1000000000000000000",
    "buyAmount": "1000000000",
    "kind": "sell",
    "partiallyFillable": false,
    "protocolFees": [
      {"kind": "surplus", "factor": 0.5, "maxVolumeFactor": 0.01},
      {"kind": "priceImprovement", "factor": 0.5, "maxVolumeFactor": 0.01,
       "quote": {"sellAmount": "1000000000000000000", "buyAmount": "1900000000", "fee": "0"}}
    ]
  }],
  "prices": {
    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2": "1000000000000000000",
    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": "500000000000000000000000000"
  }
}`

func TestAuction_ToDomain(t *testing.T) {
	var dto wire.Auction
	require.NoError(t, json.Unmarshal([]byte(auctionJSON), &dto))

	a, err := dto.ToDomain(asset.WrappedNative(1))
	require.NoError(t, err)

	assert.Equal(t, domain.AuctionID(7), a.ID())
	assert.Equal(t, uint64(19_000_000), a.Block())
	require.Equal(t, 1, a.OrderCount())

	o := a.Orders()[0]
	assert.Equal(t, domain.SideSell, o.Side)
	assert.Equal(t, uint32(1_900_000_000), o.UID.ValidTo())
	assert.Equal(t, "1000000000", o.BuyAmount.String())

	fees := a.FeePolicies(o.UID)
	require.Len(t, fees, 2)
	assert.Equal(t, domain.FeeSurplus, fees[0].Kind)
	assert.Equal(t, domain.FeePriceImprovement, fees[1].Kind)
	assert.Equal(t, "1900000000", fees[1].Quote.BuyAmount.String())

	usdc, ok := a.NativePrice(asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"))
	require.True(t, ok)
	wei, err := usdc.InEth(asset.NewTokenAmount(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, "500000000000000", wei.Wei().String())
}

func TestAuction_RoundTrip(t *testing.T) {
	var dto wire.Auction
	require.NoError(t, json.Unmarshal([]byte(auctionJSON), &dto))
	a, err := dto.ToDomain(asset.WrappedNative(1))
	require.NoError(t, err)

	raw, err := json.Marshal(wire.SolveRequest{Auction: wire.AuctionFromDomain(a)})
	require.NoError(t, err)

	var back wire.Auction
	require.NoError(t, json.Unmarshal(raw, &back))
	again, err := back.ToDomain(asset.WrappedNative(1))
	require.NoError(t, err)

	assert.Equal(t, a.Orders(), again.Orders())
	assert.Equal(t, a.FeePolicies(a.Orders()[0].UID), again.FeePolicies(a.Orders()[0].UID))
	assert.Equal(t, dto.Prices, back.Prices)
}

func TestAuction_InvalidFeeKind(t *testing.T) {
	dto := wire.Auction{Orders: []wire.Order{{
		SellAmount: asset.NewTokenAmount(1), BuyAmount: asset.NewTokenAmount(1),
		ProtocolFees: []wire.FeePolicy{{Kind: "rebate"}},
	}}}
	_, err := dto.ToDomain(asset.WrappedNative(1))
	assert.True(t, errors.Is(err, domain.ErrInvalidFeePolicy))
}

func TestSolution_ToDomain(t *testing.T) {
	raw := `{"solutions": [{
	  "id": 3,
	  "trades": [{"order": "` + uid + `", "executedSell": "1000000000000000000", "executedBuy": "2000000000"}],
	  "prices": {
	    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2": "2000000000",
	    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": {"num": "1000000000000000000", "den": "1"}
	  },
	  "gas": 180000,
	  "score": "12345"
	}]}`

	var resp wire.SolveResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Len(t, resp.Solutions, 1)

	p := resp.Solutions[0].ToDomain()
	assert.Equal(t, domain.SolutionID(3), p.ID)
	assert.Equal(t, uint64(180_000), p.Gas)
	require.NotNil(t, p.ReportedScore)
	assert.Equal(t, "12345", p.ReportedScore.Wei().String())
	assert.Nil(t, p.SuccessProbability)

	require.Len(t, p.Trades, 1)
	assert.Equal(t, "2000000000", p.Trades[0].ExecutedBuy.String())

	weth := p.Prices[asset.HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")]
	assert.Equal(t, "2000000000/1", weth.String())
	usdc := p.Prices[asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")]
	assert.Equal(t, "1000000000000000000/1", usdc.String())
}

func TestPrice_Invalid(t *testing.T) {
	var p wire.Price
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"num": "1", "den": "0"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`12`), &p))
}
