package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fd1az/autopilot/internal/asset"
)

// Surplus and protocol fee accounting (CIP-38). An order's score is its
// surplus over the limit price plus the protocol fees it paid, expressed
// in wei through the buy token's native price.

// customPrices are the uniform prices implied by one trade.
type customPrices struct {
	sell asset.TokenAmount // price of the sell token
	buy  asset.TokenAmount // price of the buy token
}

// pricesFromExecution derives custom prices such that
// executed_sell * sell_price == executed_buy * buy_price.
func pricesFromExecution(t Trade) customPrices {
	return customPrices{sell: t.ExecutedBuy, buy: t.ExecutedSell}
}

// priceLimits is a sell/buy amount pair defining a limit price.
type priceLimits struct {
	sell asset.TokenAmount
	buy  asset.TokenAmount
}

func orderLimits(o Order) priceLimits {
	return priceLimits{sell: o.SellAmount, buy: o.BuyAmount}
}

// ObjectiveValue is the total surplus plus protocol fees of a set of trades
// in wei.
func ObjectiveValue(auction *Auction, trades []Trade) (asset.Ether, error) {
	total := asset.EtherFromWei(0)
	for _, t := range trades {
		order, ok := auction.Order(t.OrderUID)
		if !ok {
			return asset.Ether{}, fmt.Errorf("%w: %s", ErrUnknownOrder, t.OrderUID.Short())
		}
		score, err := orderScore(auction, order, t)
		if err != nil {
			return asset.Ether{}, err
		}
		if total, err = total.Add(score); err != nil {
			return asset.Ether{}, err
		}
	}
	return total, nil
}

// scoresByPair aggregates order scores per directed token pair.
func scoresByPair(auction *Auction, s *Solution) (map[asset.DirectedTokenPair]asset.Ether, error) {
	out := make(map[asset.DirectedTokenPair]asset.Ether)
	for _, t := range s.TradeList() {
		order, ok := auction.Order(t.OrderUID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, t.OrderUID.Short())
		}
		pair, err := order.Pair()
		if err != nil {
			return nil, err
		}
		score, err := orderScore(auction, order, t)
		if err != nil {
			return nil, err
		}
		sum := out[pair]
		if sum, err = sum.Add(score); err != nil {
			return nil, err
		}
		out[pair] = sum
	}
	return out, nil
}

// orderScore returns surplus plus protocol fees of one trade in wei.
func orderScore(auction *Auction, o Order, t Trade) (asset.Ether, error) {
	nativeBuy, ok := auction.NativePrice(o.BuyToken)
	if !ok {
		return asset.Ether{}, fmt.Errorf("%w: %s", ErrMissingNativePrice, o.BuyToken.Hex())
	}

	prices := pricesFromExecution(t)
	surplus, err := surplusOver(o, t, prices, orderLimits(o))
	if err != nil {
		return asset.Ether{}, err
	}
	fees, err := protocolFees(o, t, auction.FeePolicies(o.UID), prices)
	if err != nil {
		return asset.Ether{}, err
	}
	total, err := surplus.Add(fees)
	if err != nil {
		return asset.Ether{}, err
	}

	if o.Side == SideBuy {
		// surplus is in sell tokens, move it to buy tokens at the limit price
		total, err = total.MulDiv(o.BuyAmount, o.SellAmount, asset.RoundDown)
		if err != nil {
			return asset.Ether{}, err
		}
	}
	return nativeBuy.InEth(total)
}

// surplusOver returns the surplus of a trade over the given limit prices,
// in the sell token for buy orders and in the buy token for sell orders.
func surplusOver(o Order, t Trade, prices customPrices, limits priceLimits) (asset.TokenAmount, error) {
	if o.Side == SideBuy {
		// the most the trader was willing to sell for what they bought
		limitSell, err := limits.sell.MulDiv(t.ExecutedBuy, limits.buy, asset.RoundDown)
		if err != nil {
			return asset.TokenAmount{}, err
		}
		sold, err := t.ExecutedBuy.MulDiv(prices.buy, prices.sell, asset.RoundDown)
		if err != nil {
			return asset.TokenAmount{}, err
		}
		return limitSell.Sub(sold)
	}

	// the least the trader was willing to receive for what they sold
	limitBuy, err := t.ExecutedSell.MulDiv(limits.buy, limits.sell, asset.RoundUp)
	if err != nil {
		return asset.TokenAmount{}, err
	}
	bought, err := t.ExecutedSell.MulDiv(prices.sell, prices.buy, asset.RoundUp)
	if err != nil {
		return asset.TokenAmount{}, err
	}
	return bought.Sub(limitBuy)
}

// protocolFees walks the policies in reverse, recomputing custom prices
// after each fee so every policy sees the trade as if later fees were not
// taken yet.
func protocolFees(o Order, t Trade, policies []FeePolicy, base customPrices) (asset.TokenAmount, error) {
	total := asset.Zero
	current := base
	for i := len(policies) - 1; i >= 0; i-- {
		fee, err := protocolFee(o, t, policies[i], current)
		if err != nil {
			return asset.TokenAmount{}, err
		}
		if total, err = total.Add(fee); err != nil {
			return asset.TokenAmount{}, err
		}
		if i > 0 {
			if current, err = customPricesWithFee(o, t, total, base); err != nil {
				return asset.TokenAmount{}, err
			}
		}
	}
	return total, nil
}

func protocolFee(o Order, t Trade, p FeePolicy, prices customPrices) (asset.TokenAmount, error) {
	switch p.Kind {
	case FeeSurplus:
		surplus, err := surplusOver(o, t, prices, orderLimits(o))
		if err != nil {
			return asset.TokenAmount{}, err
		}
		return cappedSurplusFee(o, t, prices, surplus, p)

	case FeePriceImprovement:
		limits, err := adjustQuoteToLimits(o, p.Quote)
		if err != nil {
			return asset.TokenAmount{}, err
		}
		improvement, err := surplusOver(o, t, prices, limits)
		if errors.Is(err, asset.ErrNegativeAmount) {
			improvement = asset.Zero
		} else if err != nil {
			return asset.TokenAmount{}, err
		}
		return cappedSurplusFee(o, t, prices, improvement, p)

	case FeeVolume:
		return volumeFee(o, t, prices, p.Factor)

	default:
		return asset.TokenAmount{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidFeePolicy, p.Kind)
	}
}

func cappedSurplusFee(o Order, t Trade, prices customPrices, surplus asset.TokenAmount, p FeePolicy) (asset.TokenAmount, error) {
	fee, err := surplusFee(surplus, p.Factor)
	if err != nil {
		return asset.TokenAmount{}, err
	}
	limit, err := volumeFee(o, t, prices, p.MaxVolumeFactor)
	if err != nil {
		return asset.TokenAmount{}, err
	}
	return asset.Min(fee, limit), nil
}

// surplusFee is the fee such that fee == factor * (surplus + fee).
func surplusFee(surplus asset.TokenAmount, factor float64) (asset.TokenAmount, error) {
	f := new(big.Rat).SetFloat64(factor)
	adjusted := new(big.Rat).Quo(f, new(big.Rat).Sub(big.NewRat(1, 1), f))
	return mulRat(surplus, adjusted)
}

// volumeFee is the fee such that fee == factor * (volume + fee) for sell
// orders and fee == factor * (volume - fee) for buy orders, volume being
// measured in the surplus token.
func volumeFee(o Order, t Trade, prices customPrices, factor float64) (asset.TokenAmount, error) {
	f := new(big.Rat).SetFloat64(factor)
	one := big.NewRat(1, 1)

	var (
		volume   asset.TokenAmount
		adjusted *big.Rat
		err      error
	)
	if o.Side == SideBuy {
		volume, err = executedSellAmount(o, t, prices)
		adjusted = new(big.Rat).Quo(f, new(big.Rat).Add(one, f))
	} else {
		volume, err = executedBuyAmount(o, t, prices)
		adjusted = new(big.Rat).Quo(f, new(big.Rat).Sub(one, f))
	}
	if err != nil {
		return asset.TokenAmount{}, err
	}
	return mulRat(volume, adjusted)
}

// adjustQuoteToLimits scales the quote to the order size and keeps the
// stricter of quote and limit.
func adjustQuoteToLimits(o Order, q Quote) (priceLimits, error) {
	if o.Side == SideBuy {
		quoteSell, err := q.SellAmount.Add(q.Fee)
		if err != nil {
			return priceLimits{}, err
		}
		scaled, err := quoteSell.MulDiv(o.BuyAmount, q.BuyAmount, asset.RoundDown)
		if err != nil {
			return priceLimits{}, err
		}
		return priceLimits{sell: asset.Min(o.SellAmount, scaled), buy: o.BuyAmount}, nil
	}

	feeInBuy, err := q.Fee.MulDiv(q.BuyAmount, q.SellAmount, asset.RoundDown)
	if err != nil {
		return priceLimits{}, err
	}
	quoteBuy, err := q.BuyAmount.Sub(feeInBuy)
	if err != nil {
		return priceLimits{}, err
	}
	scaled, err := quoteBuy.MulDiv(o.SellAmount, q.SellAmount, asset.RoundDown)
	if err != nil {
		return priceLimits{}, err
	}
	return priceLimits{sell: o.SellAmount, buy: asset.Max(o.BuyAmount, scaled)}, nil
}

// executedSellAmount is the amount of sell token the trade sold at the
// given prices.
func executedSellAmount(o Order, t Trade, prices customPrices) (asset.TokenAmount, error) {
	if o.Side == SideBuy {
		return t.ExecutedBuy.MulDiv(prices.buy, prices.sell, asset.RoundDown)
	}
	return t.ExecutedSell, nil
}

// executedBuyAmount is the amount of buy token the trade bought at the
// given prices.
func executedBuyAmount(o Order, t Trade, prices customPrices) (asset.TokenAmount, error) {
	if o.Side == SideBuy {
		return t.ExecutedBuy, nil
	}
	return t.ExecutedSell.MulDiv(prices.sell, prices.buy, asset.RoundUp)
}

// customPricesWithFee are the prices the trade would have cleared at had
// the fee not been taken.
func customPricesWithFee(o Order, t Trade, fee asset.TokenAmount, base customPrices) (customPrices, error) {
	sold, err := executedSellAmount(o, t, base)
	if err != nil {
		return customPrices{}, err
	}
	bought, err := executedBuyAmount(o, t, base)
	if err != nil {
		return customPrices{}, err
	}
	if o.Side == SideBuy {
		if sold, err = sold.Sub(fee); err != nil {
			return customPrices{}, err
		}
	} else {
		if bought, err = bought.Add(fee); err != nil {
			return customPrices{}, err
		}
	}
	return customPrices{sell: bought, buy: sold}, nil
}

// mulRat multiplies an amount by a non-negative rational, rounding down.
func mulRat(a asset.TokenAmount, r *big.Rat) (asset.TokenAmount, error) {
	product := new(big.Int).Mul(a.Big(), r.Num())
	return asset.TokenAmountFromBig(product.Quo(product, r.Denom()))
}
