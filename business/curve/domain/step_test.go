package domain

import (
	"errors"
	"math/big"
	"testing"
)

func steps(pairs ...int64) []BondStep {
	out := make([]BondStep, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, BondStep{
			Step:    uint32(i/2 + 1),
			RangeTo: uint64(pairs[i]),
			Price:   big.NewInt(pairs[i+1]),
		})
	}
	return out
}

func TestPriceAtSupply(t *testing.T) {
	table := steps(100, 1, 300, 2)

	tests := []struct {
		name   string
		supply uint64
		want   int64
	}{
		{name: "zero_supply_first_step", supply: 0, want: 1},
		{name: "at_first_boundary", supply: 100, want: 1},
		{name: "inside_second_step", supply: 150, want: 2},
		{name: "at_last_boundary", supply: 300, want: 2},
		{name: "beyond_last_clamps", supply: 500, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceAtSupply(tt.supply, table)
			if got == nil || got.Int64() != tt.want {
				t.Errorf("PriceAtSupply(%d) = %v, want %d", tt.supply, got, tt.want)
			}
		})
	}
}

func TestPriceAtSupply_EmptyTable(t *testing.T) {
	if got := PriceAtSupply(10, nil); got != nil {
		t.Errorf("PriceAtSupply on empty table = %v, want nil", got)
	}
}

func TestPriceAtSupply_Monotonic(t *testing.T) {
	table := steps(10, 5, 20, 5, 50, 9, 51, 12, 1000, 40)

	prev := PriceAtSupply(0, table)
	for supply := uint64(1); supply <= 1200; supply++ {
		cur := PriceAtSupply(supply, table)
		if cur.Cmp(prev) < 0 {
			t.Fatalf("price decreased at supply %d: %s < %s", supply, cur, prev)
		}
		prev = cur
	}

	last := table[len(table)-1].Price
	if prev.Cmp(last) != 0 {
		t.Errorf("price past final range = %s, want %s", prev, last)
	}
}

func TestPriceAtSupply_ReturnsCopy(t *testing.T) {
	table := steps(100, 7)
	got := PriceAtSupply(1, table)
	got.SetInt64(99)
	if table[0].Price.Int64() != 7 {
		t.Error("mutating the result changed the step table")
	}
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []BondStep
		supply  uint64
		wantErr error
	}{
		{name: "valid", steps: steps(100, 1, 300, 2), supply: 150},
		{name: "empty", steps: nil, wantErr: ErrEmptySteps},
		{name: "equal_ranges", steps: steps(100, 1, 100, 2), wantErr: ErrStepsNotAscending},
		{name: "descending_ranges", steps: steps(200, 1, 100, 2), wantErr: ErrStepsNotAscending},
		{name: "price_drops", steps: steps(100, 3, 200, 2), wantErr: ErrStepPriceDecrease},
		{name: "supply_above_range", steps: steps(100, 1, 300, 2), supply: 301, wantErr: ErrSupplyAboveRange},
		{name: "supply_at_range", steps: steps(100, 1, 300, 2), supply: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps, tt.supply)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSteps() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSteps() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemainingCapacity(t *testing.T) {
	table := steps(100, 1, 300, 2)

	if got := RemainingCapacity(150, table); got != 150 {
		t.Errorf("RemainingCapacity(150) = %d, want 150", got)
	}
	if got := RemainingCapacity(300, table); got != 0 {
		t.Errorf("RemainingCapacity(300) = %d, want 0", got)
	}
	if got := RemainingCapacity(0, nil); got != 0 {
		t.Errorf("RemainingCapacity on empty table = %d, want 0", got)
	}
	if got := RemainingInStep(95, table); got != 5 {
		t.Errorf("RemainingInStep(95) = %d, want 5", got)
	}
	if got := RemainingInStep(100, table); got != 200 {
		t.Errorf("RemainingInStep(100) = %d, want 200", got)
	}
}

func TestEstimateFromSteps(t *testing.T) {
	table := steps(100, 1, 300, 2)

	tests := []struct {
		name     string
		dir      Direction
		quantity uint64
		supply   uint64
		want     int64
		wantErr  error
	}{
		// tickets 96..100 at 1, 101..105 at 2
		{name: "buy_across_boundary", dir: DirectionBuy, quantity: 10, supply: 95, want: 15},
		{name: "buy_inside_step", dir: DirectionBuy, quantity: 3, supply: 10, want: 3},
		{name: "buy_to_capacity", dir: DirectionBuy, quantity: 150, supply: 150, want: 300},
		{name: "buy_over_capacity", dir: DirectionBuy, quantity: 151, supply: 150, wantErr: ErrCapacityExceeded},
		// tickets 96..105 sold back: 96..100 at 1, 101..105 at 2
		{name: "sell_across_boundary", dir: DirectionSell, quantity: 10, supply: 105, want: 15},
		{name: "sell_everything", dir: DirectionSell, quantity: 100, supply: 100, want: 100},
		{name: "sell_more_than_supply", dir: DirectionSell, quantity: 5, supply: 4, wantErr: ErrSupplyExceeded},
		{name: "zero_quantity", dir: DirectionBuy, quantity: 0, supply: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateFromSteps(tt.dir, tt.quantity, tt.supply, table)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("EstimateFromSteps() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EstimateFromSteps() error = %v", err)
			}
			if got.Int64() != tt.want {
				t.Errorf("EstimateFromSteps() = %s, want %d", got, tt.want)
			}
		})
	}

	if _, err := EstimateFromSteps(DirectionBuy, 1, 0, nil); !errors.Is(err, ErrEmptySteps) {
		t.Errorf("empty table error = %v, want ErrEmptySteps", err)
	}
}
