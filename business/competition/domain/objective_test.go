package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/internal/asset"
)

func TestObjectiveValue(t *testing.T) {
	tests := []struct {
		name    string
		fees    map[OrderUid][]FeePolicy
		trades  []Trade
		wantWei string
	}{
		{
			// 10 USDC surplus at 5e14 wei per USDC
			name:    "sell order surplus",
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "5000000000000000",
		},
		{
			// 100 USDC surplus moved to WETH at the limit price 2100 USDC/WETH
			name:    "buy order surplus rounds down",
			trades:  []Trade{trade(orderBuyWeth, "2000000000", "1000000000000000000")},
			wantWei: "47619047619047619",
		},
		{
			name:    "execution at limit has no surplus",
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1000000000")},
			wantWei: "0",
		},
		{
			name: "surplus fee is added back",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {SurplusFee(0.5, 0.9)}},
			// surplus 10 USDC, fee 10 USDC
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "10000000000000000",
		},
		{
			name: "surplus fee capped by volume",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {SurplusFee(0.5, 0.001)}},
			// cap = floor(1010e6 * 0.001/0.999) = 1011011
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "5505505500000000",
		},
		{
			name: "volume fee on sell order",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {VolumeFee(0.01)}},
			// fee = floor(1010e6 * 0.01/0.99) = 10202020
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "10101010000000000",
		},
		{
			name: "price improvement over quote",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {
				PriceImprovementFee(0.5, 0.9, Quote{SellAmount: amt("1000000000000000000"), BuyAmount: amt("1005000000"), Fee: asset.Zero}),
			}},
			// improvement 5 USDC, fee 5 USDC
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "7500000000000000",
		},
		{
			name: "quote better than execution charges nothing",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {
				PriceImprovementFee(0.5, 0.9, Quote{SellAmount: amt("1000000000000000000"), BuyAmount: amt("1020000000"), Fee: asset.Zero}),
			}},
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "5000000000000000",
		},
		{
			name: "policies applied in reverse",
			fees: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {VolumeFee(0.01), SurplusFee(0.5, 0.9)}},
			// surplus fee 10e6 first, then volume fee on 1020e6: 10303030
			trades:  []Trade{trade(orderWethUsdc, "1000000000000000000", "1010000000")},
			wantWei: "15151515000000000",
		},
		{
			name: "trades are summed",
			trades: []Trade{
				trade(orderWethUsdc, "1000000000000000000", "1010000000"),
				trade(orderDaiWeth, "2000000000000000000000", "1010000000000000000"),
			},
			wantWei: "15000000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auction := newTestAuction(t, tt.fees)
			got, err := ObjectiveValue(auction, tt.trades)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWei, got.Wei().String())
		})
	}
}

func TestObjectiveValue_Errors(t *testing.T) {
	auction := newTestAuction(t, nil)

	_, err := ObjectiveValue(auction, []Trade{{OrderUID: uidN(99), ExecutedSell: amt("1"), ExecutedBuy: amt("1")}})
	assert.ErrorIs(t, err, ErrUnknownOrder)

	_, err = ObjectiveValue(auction, []Trade{trade(orderWethUsdc, "1000000000000000000", "990000000")})
	assert.ErrorIs(t, err, asset.ErrNegativeAmount)

	unpriced := Order{
		UID: uidN(7), SellToken: weth, BuyToken: asset.HexToToken("0x00000000000000000000000000000000000000aa"),
		SellAmount: amt("1"), BuyAmount: amt("1"),
	}
	auction = newTestAuction(t, nil, unpriced)
	_, err = ObjectiveValue(auction, []Trade{trade(unpriced, "1", "2")})
	assert.ErrorIs(t, err, ErrMissingNativePrice)
}

func TestScoresByPair(t *testing.T) {
	auction := newTestAuction(t, nil)
	tA := trade(orderWethUsdc, "1000000000000000000", "1010000000")
	tB := trade(orderDaiWeth, "2000000000000000000000", "1010000000000000000")
	s := NewSolution(1, solverA, []Trade{tA, tB}, nil, ZeroScore)

	scores, err := scoresByPair(auction, s)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	pairA, _ := orderWethUsdc.Pair()
	pairB, _ := orderDaiWeth.Pair()
	assert.Equal(t, "5000000000000000", scores[pairA].Wei().String())
	assert.Equal(t, "10000000000000000", scores[pairB].Wei().String())
}

func TestAuction_NativeTokenFallsBackToWrapped(t *testing.T) {
	ethOrder := Order{
		UID: uidN(8), SellToken: usdc, BuyToken: asset.NativeToken, Side: SideSell,
		SellAmount: amt("2000000000"), BuyAmount: amt("1000000000000000000"),
	}
	a, err := NewAuction(AuctionParams{
		Orders:        []Order{ethOrder},
		NativePrices:  nativePrices(),
		WrappedNative: weth,
	})
	require.NoError(t, err)

	p, ok := a.NativePrice(asset.NativeToken)
	require.True(t, ok)
	assert.Equal(t, 0, p.Cmp(nativePrices()[weth]))
}

func TestNewAuction_Rejects(t *testing.T) {
	_, err := NewAuction(AuctionParams{Orders: []Order{orderWethUsdc, orderWethUsdc}})
	assert.ErrorIs(t, err, ErrInvalidAuction)

	_, err = NewAuction(AuctionParams{
		Orders:      []Order{orderWethUsdc},
		FeePolicies: map[OrderUid][]FeePolicy{uidN(9): {VolumeFee(0.01)}},
	})
	assert.ErrorIs(t, err, ErrInvalidAuction)

	_, err = NewAuction(AuctionParams{
		Orders:      []Order{orderWethUsdc},
		FeePolicies: map[OrderUid][]FeePolicy{orderWethUsdc.UID: {VolumeFee(1)}},
	})
	assert.ErrorIs(t, err, ErrInvalidFeePolicy)

	bad := orderWethUsdc
	bad.BuyToken = bad.SellToken
	_, err = NewAuction(AuctionParams{Orders: []Order{bad}})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}
