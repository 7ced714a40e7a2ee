package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/internal/asset"
)

var sofAddr = common.HexToAddress("0x00000000000000000000000000000000000005f0")

func sof(t *testing.T) *asset.Asset {
	t.Helper()
	a, err := asset.New(asset.TokenID(asset.ChainIDBaseSepolia, sofAddr), "SOF", 18)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAmount_Format(t *testing.T) {
	raw, _ := new(big.Int).SetString("1015000000000000000000", 10)
	amt := asset.NewAmount(sof(t), raw)

	if got := amt.String(); got != "1015 SOF" {
		t.Errorf("String() = %q, want %q", got, "1015 SOF")
	}
	if got := amt.StringFixed(2); got != "1015.00 SOF" {
		t.Errorf("StringFixed(2) = %q", got)
	}

	// mutating the source must not change the amount
	raw.SetInt64(0)
	if amt.Raw().Sign() == 0 {
		t.Error("NewAmount did not copy raw")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "whole", in: "12", want: "12000000000000000000"},
		{name: "fraction", in: "0.5", want: "500000000000000000"},
		{name: "negative", in: "-1", wantErr: asset.ErrNegativeAmount},
		{name: "too_precise", in: "0.0000000000000000001", wantErr: asset.ErrTooManyDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.Parse(sof(t), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Raw().String() != tt.want {
				t.Errorf("raw = %s, want %s", got.Raw(), tt.want)
			}
		})
	}

	if _, err := asset.Parse(sof(t), "abc"); err == nil {
		t.Error("Parse(abc) should fail")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.NewNetworkRegistry(asset.ChainIDBaseSepolia)

	eth, ok := r.Native(asset.ChainIDBaseSepolia)
	if !ok || eth.Symbol() != "ETH" || !eth.ID().IsNative() {
		t.Fatalf("native = %v, %v", eth, ok)
	}

	token := sof(t)
	if err := r.Register(token); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(token); err == nil {
		t.Error("duplicate Register() should fail")
	}

	got, ok := r.Token(asset.ChainIDBaseSepolia, sofAddr)
	if !ok || got.Decimals() != 18 {
		t.Errorf("Token() = %v, %v", got, ok)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestNew_EmptySymbol(t *testing.T) {
	a, err := asset.New(asset.TokenID(1, sofAddr), "", 6)
	if err != nil {
		t.Fatal(err)
	}
	if a.Symbol() != sofAddr.Hex()[:8] {
		t.Errorf("symbol = %q", a.Symbol())
	}
	if _, err := asset.New(asset.TokenID(1, sofAddr), "X", 77); err == nil {
		t.Error("decimals 77 should be rejected")
	}
}
