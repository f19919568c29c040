package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/fd1az/autopilot/internal/asset"
	"github.com/shopspring/decimal"
)

func maxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}

func TestTokenAmount_FromBig(t *testing.T) {
	tests := []struct {
		name    string
		raw     *big.Int
		wantErr error
	}{
		{name: "zero", raw: big.NewInt(0)},
		{name: "max", raw: maxUint256()},
		{name: "negative", raw: big.NewInt(-1), wantErr: asset.ErrNegativeAmount},
		{name: "too wide", raw: new(big.Int).Lsh(big.NewInt(1), 256), wantErr: asset.ErrAmountOverflow},
		{name: "nil", raw: nil, wantErr: asset.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := asset.TokenAmountFromBig(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && a.Big().Cmp(tt.raw) != 0 {
				t.Errorf("expected %s, got %s", tt.raw, a.Big())
			}
		})
	}
}

func TestTokenAmount_Add(t *testing.T) {
	sum, err := asset.NewTokenAmount(1e18).Add(asset.NewTokenAmount(2e18))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Cmp(asset.NewTokenAmount(3e18)) != 0 {
		t.Errorf("expected 3e18, got %s", sum)
	}

	max, _ := asset.TokenAmountFromBig(maxUint256())
	if _, err := max.Add(asset.NewTokenAmount(1)); !errors.Is(err, asset.ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestTokenAmount_Sub(t *testing.T) {
	diff, err := asset.NewTokenAmount(3).Sub(asset.NewTokenAmount(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.Cmp(asset.NewTokenAmount(2)) != 0 {
		t.Errorf("expected 2, got %s", diff)
	}

	if _, err := asset.NewTokenAmount(1).Sub(asset.NewTokenAmount(3)); !errors.Is(err, asset.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestTokenAmount_Mul(t *testing.T) {
	max, _ := asset.TokenAmountFromBig(maxUint256())
	if _, err := max.Mul(asset.NewTokenAmount(2)); !errors.Is(err, asset.ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}

	product, err := asset.NewTokenAmount(6).Mul(asset.NewTokenAmount(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.String() != "42" {
		t.Errorf("expected 42, got %s", product)
	}
}

func TestTokenAmount_MulDiv(t *testing.T) {
	tests := []struct {
		name     string
		a, n, d  uint64
		rounding asset.Rounding
		want     uint64
	}{
		{"exact", 10, 3, 5, asset.RoundDown, 6},
		{"floor", 7, 3, 2, asset.RoundDown, 10},
		{"ceil", 7, 3, 2, asset.RoundUp, 11},
		{"ceil exact", 10, 3, 5, asset.RoundUp, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.NewTokenAmount(tt.a).MulDiv(asset.NewTokenAmount(tt.n), asset.NewTokenAmount(tt.d), tt.rounding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cmp(asset.NewTokenAmount(tt.want)) != 0 {
				t.Errorf("expected %d, got %s", tt.want, got)
			}
		})
	}

	if _, err := asset.NewTokenAmount(1).MulDiv(asset.NewTokenAmount(1), asset.Zero, asset.RoundDown); !errors.Is(err, asset.ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestTokenAmount_MulDivWideIntermediate(t *testing.T) {
	max, _ := asset.TokenAmountFromBig(maxUint256())

	// max * 2 / 2 overflows 256 bits only in the intermediate product.
	got, err := max.MulDiv(asset.NewTokenAmount(2), asset.NewTokenAmount(2), asset.RoundDown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(max) != 0 {
		t.Errorf("expected max, got %s", got)
	}
}

func TestTokenAmount_Text(t *testing.T) {
	var a asset.TokenAmount
	if err := a.UnmarshalText([]byte("123456789012345678901234567890")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, _ := a.MarshalText()
	if string(text) != "123456789012345678901234567890" {
		t.Errorf("unexpected text %s", text)
	}

	if err := a.UnmarshalText([]byte("-5")); !errors.Is(err, asset.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
	if err := a.UnmarshalText([]byte("1.5")); !errors.Is(err, asset.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTokenAmount_ToDecimal(t *testing.T) {
	oneAndHalf := asset.NewTokenAmount(1_500_000)
	if !oneAndHalf.ToDecimal(6).Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", oneAndHalf.ToDecimal(6))
	}
}

func TestEther_Signed(t *testing.T) {
	cost := asset.EtherFromWei(300)
	value := asset.EtherFromWei(100)

	net, err := value.Sub(cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net.Sign() >= 0 {
		t.Errorf("expected negative net, got %s", net.Wei())
	}
	if _, err := net.ToAmount(); !errors.Is(err, asset.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}

	tooBig := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 256))
	if _, err := asset.NewEther(tooBig); !errors.Is(err, asset.ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestEther_ToDecimal(t *testing.T) {
	half := asset.EtherFromWei(5e17)
	if half.String() != "0.5 ETH" {
		t.Errorf("expected '0.5 ETH', got %q", half.String())
	}
}
