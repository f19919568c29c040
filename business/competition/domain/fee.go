package domain

import (
	"fmt"
	"math"

	"github.com/fd1az/autopilot/internal/asset"
)

// FeePolicyKind selects how a protocol fee is computed.
type FeePolicyKind uint8

const (
	// FeeSurplus takes a cut of the surplus over the limit price.
	FeeSurplus FeePolicyKind = iota + 1
	// FeePriceImprovement takes a cut of the improvement over a quote.
	FeePriceImprovement
	// FeeVolume takes a cut of the traded volume.
	FeeVolume
)

// String returns the policy kind name.
func (k FeePolicyKind) String() string {
	switch k {
	case FeeSurplus:
		return "surplus"
	case FeePriceImprovement:
		return "priceImprovement"
	case FeeVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// Quote is the price quoted to the user when the order was placed.
type Quote struct {
	SellAmount asset.TokenAmount
	BuyAmount  asset.TokenAmount
	Fee        asset.TokenAmount
}

// FeePolicy determines how much of an order's surplus the protocol keeps.
// Factors are fractions in [0, 1).
type FeePolicy struct {
	Kind            FeePolicyKind
	Factor          float64
	MaxVolumeFactor float64
	Quote           Quote // FeePriceImprovement only
}

// SurplusFee creates a surplus policy capped by a volume factor.
func SurplusFee(factor, maxVolumeFactor float64) FeePolicy {
	return FeePolicy{Kind: FeeSurplus, Factor: factor, MaxVolumeFactor: maxVolumeFactor}
}

// PriceImprovementFee creates a price improvement policy.
func PriceImprovementFee(factor, maxVolumeFactor float64, quote Quote) FeePolicy {
	return FeePolicy{Kind: FeePriceImprovement, Factor: factor, MaxVolumeFactor: maxVolumeFactor, Quote: quote}
}

// VolumeFee creates a volume policy.
func VolumeFee(factor float64) FeePolicy {
	return FeePolicy{Kind: FeeVolume, Factor: factor}
}

// Validate checks the factor ranges.
func (p FeePolicy) Validate() error {
	check := func(name string, f float64) error {
		if math.IsNaN(f) || f < 0 || f >= 1 {
			return fmt.Errorf("%w: %s %s factor %v outside [0, 1)", ErrInvalidFeePolicy, p.Kind, name, f)
		}
		return nil
	}

	switch p.Kind {
	case FeeSurplus:
		if err := check("surplus", p.Factor); err != nil {
			return err
		}
		return check("max volume", p.MaxVolumeFactor)
	case FeePriceImprovement:
		if err := check("price improvement", p.Factor); err != nil {
			return err
		}
		if p.Quote.SellAmount.IsZero() || p.Quote.BuyAmount.IsZero() {
			return fmt.Errorf("%w: quote amounts must be positive", ErrInvalidFeePolicy)
		}
		return check("max volume", p.MaxVolumeFactor)
	case FeeVolume:
		return check("volume", p.Factor)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidFeePolicy, p.Kind)
	}
}
