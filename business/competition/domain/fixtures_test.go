package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/internal/asset"
)

var (
	weth = asset.HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = asset.HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = asset.HexToToken("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	solverA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	solverB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	solverC = common.HexToAddress("0x000000000000000000000000000000000000000c")

	owner = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func amt(s string) asset.TokenAmount { return asset.MustParseTokenAmount(s) }

func uidN(n byte) OrderUid {
	return NewOrderUid(common.Hash{n}, owner, 1_900_000_000)
}

func bigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func price(num, den string) asset.Price {
	p, err := asset.NewPrice(bigInt(num), bigInt(den))
	if err != nil {
		panic(err)
	}
	return p
}

// Market: 1 ETH = 2000 USDC = 2000 DAI.
func nativePrices() map[asset.TokenAddress]asset.Price {
	return map[asset.TokenAddress]asset.Price{
		weth: asset.NewNativePrice(amt("1000000000000000000")),
		usdc: asset.NewNativePrice(amt("500000000000000000000000000")), // 5e14 wei per USDC
		dai:  asset.NewNativePrice(amt("500000000000000")),             // 5e14 wei per DAI
	}
}

var (
	// sell 1 WETH for at least 1000 USDC
	orderWethUsdc = Order{
		UID: uidN(1), SellToken: weth, BuyToken: usdc, Side: SideSell,
		SellAmount: amt("1000000000000000000"), BuyAmount: amt("1000000000"),
	}
	// sell 2000 DAI for at least 1 WETH
	orderDaiWeth = Order{
		UID: uidN(2), SellToken: dai, BuyToken: weth, Side: SideSell,
		SellAmount: amt("2000000000000000000000"), BuyAmount: amt("1000000000000000000"),
	}
	// buy 1 WETH paying at most 2100 USDC
	orderBuyWeth = Order{
		UID: uidN(3), SellToken: usdc, BuyToken: weth, Side: SideBuy,
		SellAmount: amt("2100000000"), BuyAmount: amt("1000000000000000000"),
	}
)

func newTestAuction(t *testing.T, fees map[OrderUid][]FeePolicy, orders ...Order) *Auction {
	t.Helper()
	if len(orders) == 0 {
		orders = []Order{orderWethUsdc, orderDaiWeth, orderBuyWeth}
	}
	a, err := NewAuction(AuctionParams{
		ID:           42,
		Block:        19_000_000,
		Orders:       orders,
		NativePrices: nativePrices(),
		FeePolicies:  fees,
		Deadline:     time.Unix(1_700_000_000, 0),
	})
	require.NoError(t, err)
	return a
}

func trade(o Order, sell, buy string) Trade {
	return Trade{OrderUID: o.UID, ExecutedSell: amt(sell), ExecutedBuy: amt(buy)}
}

// selfPriced builds clearing prices for a single trade that reconcile
// exactly with its execution.
func selfPriced(o Order, t Trade) map[asset.TokenAddress]asset.Price {
	return map[asset.TokenAddress]asset.Price{
		o.SellToken: price(t.ExecutedBuy.String(), "1"),
		o.BuyToken:  price(t.ExecutedSell.String(), "1"),
	}
}

// stub builds a solution with a given score that trades the given orders.
// Only usable where trade validity does not matter.
func stub(solver common.Address, id SolutionID, score uint64, uids ...OrderUid) Unranked {
	trades := make([]Trade, len(uids))
	for i, uid := range uids {
		trades[i] = Trade{OrderUID: uid, ExecutedSell: asset.NewTokenAmount(1), ExecutedBuy: asset.NewTokenAmount(1)}
	}
	return NewParticipant(solver.Hex()[:6], NewSolution(id, solver, trades, nil, ScoreFromWei(score)))
}
