package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestApplyFee(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		feeBps uint16
		dir    Direction
		want   int64
	}{
		{name: "buy_adds_fee", amount: 1000, feeBps: 250, dir: DirectionBuy, want: 1025},
		{name: "sell_deducts_fee", amount: 1000, feeBps: 250, dir: DirectionSell, want: 975},
		{name: "zero_fee", amount: 1000, feeBps: 0, dir: DirectionSell, want: 1000},
		{name: "fee_truncates", amount: 3, feeBps: 250, dir: DirectionBuy, want: 3},
		{name: "full_fee_sell_zero", amount: 1000, feeBps: 10000, dir: DirectionSell, want: 0},
		{name: "fee_above_100pct_clamped", amount: 1000, feeBps: 65535, dir: DirectionSell, want: 0},
		{name: "fee_above_100pct_buy_capped", amount: 1000, feeBps: 65535, dir: DirectionBuy, want: 2000},
		{name: "zero_amount", amount: 0, feeBps: 250, dir: DirectionBuy, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFee(big.NewInt(tt.amount), tt.feeBps, tt.dir)
			if got.Int64() != tt.want {
				t.Errorf("ApplyFee(%d, %d, %s) = %s, want %d", tt.amount, tt.feeBps, tt.dir, got, tt.want)
			}
		})
	}
}

func TestApplyFee_SellNeverNegative(t *testing.T) {
	for _, amount := range []int64{0, 1, 7, 999, 1_000_000} {
		for _, fee := range []uint16{0, 1, 250, 9999, 10000, 20000, 65535} {
			got := ApplyFee(big.NewInt(amount), fee, DirectionSell)
			if got.Sign() < 0 {
				t.Fatalf("ApplyFee(%d, %d, sell) = %s, want >= 0", amount, fee, got)
			}
			if f := FeeAmount(big.NewInt(amount), fee); f.Cmp(big.NewInt(amount)) > 0 {
				t.Fatalf("FeeAmount(%d, %d) = %s exceeds amount", amount, fee, f)
			}
		}
	}
}

func TestApplySlippageBound(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		pct    string
		dir    Direction
		want   int64
	}{
		{name: "buy_one_pct", amount: 1000, pct: "1", dir: DirectionBuy, want: 1010},
		{name: "sell_one_pct", amount: 1000, pct: "1", dir: DirectionSell, want: 990},
		{name: "buy_rounds_up", amount: 1001, pct: "0.5", dir: DirectionBuy, want: 1007},
		{name: "sell_rounds_down", amount: 1001, pct: "0.5", dir: DirectionSell, want: 995},
		{name: "zero_pct_buy", amount: 1000, pct: "0", dir: DirectionBuy, want: 1000},
		{name: "negative_pct_treated_as_zero", amount: 1000, pct: "-5", dir: DirectionSell, want: 1000},
		{name: "sell_pct_above_100", amount: 1000, pct: "150", dir: DirectionSell, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplySlippageBound(big.NewInt(tt.amount), decimal.RequireFromString(tt.pct), tt.dir)
			if got.Int64() != tt.want {
				t.Errorf("ApplySlippageBound(%d, %s, %s) = %s, want %d", tt.amount, tt.pct, tt.dir, got, tt.want)
			}
		})
	}
}

func TestApplySlippageBound_Bounds(t *testing.T) {
	pcts := []string{"0", "0.01", "0.5", "1", "3.3", "50", "100"}
	for _, amount := range []int64{1, 2, 99, 12345, 1_000_000_007} {
		base := big.NewInt(amount)
		for _, p := range pcts {
			pct := decimal.RequireFromString(p)
			if got := ApplySlippageBound(base, pct, DirectionBuy); got.Cmp(base) < 0 {
				t.Fatalf("buy bound %s below amount %d at %s%%", got, amount, p)
			}
			if got := ApplySlippageBound(base, pct, DirectionSell); got.Cmp(base) > 0 {
				t.Fatalf("sell bound %s above amount %d at %s%%", got, amount, p)
			}
		}
	}
}

func TestImpliedPriceFromProbability(t *testing.T) {
	got := ImpliedPriceFromProbability(2500)
	if !got.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("ImpliedPriceFromProbability(2500) = %s, want 0.25", got)
	}
}

func TestNewQuote(t *testing.T) {
	q := NewQuote(DirectionBuy, 10, big.NewInt(1000), 250, SourceRemote)
	if q.FeeAmount.Int64() != 25 || q.TotalWithFee.Int64() != 1025 {
		t.Fatalf("quote fee=%s total=%s, want 25/1025", q.FeeAmount, q.TotalWithFee)
	}
	if got := q.Bound(decimal.NewFromInt(2)); got.Int64() != 1046 {
		t.Errorf("Bound(2%%) = %s, want 1046", got)
	}

	sell := NewQuote(DirectionSell, 1, big.NewInt(1), 10000, SourceLocal)
	if !sell.IsZeroProceeds() {
		t.Error("sell with 100% fee should report zero proceeds")
	}
}

func TestNewPosition(t *testing.T) {
	player := common.HexToAddress("0x01")

	tests := []struct {
		name  string
		owned uint64
		total uint64
		want  uint32
	}{
		{name: "quarter", owned: 25, total: 100, want: 2500},
		{name: "floors", owned: 1, total: 3, want: 3333},
		{name: "empty_curve", owned: 0, total: 0, want: 0},
		{name: "holds_all", owned: 40, total: 40, want: 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPosition(player, tt.owned, tt.total)
			if p.ProbabilityBps != tt.want {
				t.Errorf("ProbabilityBps = %d, want %d", p.ProbabilityBps, tt.want)
			}
		})
	}
}

func TestTradingWindow(t *testing.T) {
	now := time.Unix(1_000, 0)

	tests := []struct {
		name   string
		window TradingWindow
		want   bool
	}{
		{name: "unbounded", window: TradingWindow{}, want: true},
		{name: "inside", window: TradingWindow{Opens: now.Add(-time.Hour), Closes: now.Add(time.Hour)}, want: true},
		{name: "not_yet_open", window: TradingWindow{Opens: now.Add(time.Second)}, want: false},
		{name: "closed_at_end", window: TradingWindow{Closes: now}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.IsOpen(now); got != tt.want {
				t.Errorf("IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}
