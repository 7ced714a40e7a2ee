// Package domain contains the core domain types for the curve context.
package domain

import (
	"errors"
	"fmt"
	"math/big"
)

// Step table errors.
var (
	ErrEmptySteps        = errors.New("curve: empty step table")
	ErrStepsNotAscending = errors.New("curve: step ranges must be strictly ascending")
	ErrStepPriceDecrease = errors.New("curve: step prices must be non-decreasing")
	ErrSupplyAboveRange  = errors.New("curve: total supply above final step range")
	ErrCapacityExceeded  = errors.New("curve: purchase exceeds remaining capacity")
	ErrSupplyExceeded    = errors.New("curve: sale exceeds issued supply")
)

// BondStep is one price tier of the issuance curve. Tickets numbered up to
// and including RangeTo cost Price each.
type BondStep struct {
	Step    uint32
	RangeTo uint64
	Price   *big.Int
}

// ValidateSteps checks ordering and price monotonicity. A zero totalSupply
// skips the capacity check.
func ValidateSteps(steps []BondStep, totalSupply uint64) error {
	if len(steps) == 0 {
		return ErrEmptySteps
	}

	for i := range steps {
		if steps[i].Price == nil || steps[i].Price.Sign() < 0 {
			return fmt.Errorf("curve: step %d has invalid price", i)
		}
		if i == 0 {
			continue
		}
		if steps[i].RangeTo <= steps[i-1].RangeTo {
			return fmt.Errorf("%w: step %d rangeTo %d <= %d", ErrStepsNotAscending, i, steps[i].RangeTo, steps[i-1].RangeTo)
		}
		if steps[i].Price.Cmp(steps[i-1].Price) < 0 {
			return fmt.Errorf("%w: step %d", ErrStepPriceDecrease, i)
		}
	}

	if last := steps[len(steps)-1]; totalSupply > last.RangeTo {
		return fmt.Errorf("%w: %d > %d", ErrSupplyAboveRange, totalSupply, last.RangeTo)
	}

	return nil
}

// StepIndexAtSupply returns the index of the first step whose RangeTo covers
// supply, or the last index once supply is past every range. Returns -1 for
// an empty table.
func StepIndexAtSupply(supply uint64, steps []BondStep) int {
	if len(steps) == 0 {
		return -1
	}
	for i, s := range steps {
		if s.RangeTo >= supply {
			return i
		}
	}
	return len(steps) - 1
}

// PriceAtSupply returns the unit price of the first step whose RangeTo is at
// or above supply, clamped to the last step's price when the curve is fully
// issued. Returns nil for an empty table.
func PriceAtSupply(supply uint64, steps []BondStep) *big.Int {
	idx := StepIndexAtSupply(supply, steps)
	if idx < 0 {
		return nil
	}
	return new(big.Int).Set(steps[idx].Price)
}

// RemainingCapacity is how many tickets can still be issued.
func RemainingCapacity(supply uint64, steps []BondStep) uint64 {
	if len(steps) == 0 {
		return 0
	}
	last := steps[len(steps)-1].RangeTo
	if supply >= last {
		return 0
	}
	return last - supply
}

// RemainingInStep is how many tickets can be issued before the price moves
// to the next step.
func RemainingInStep(supply uint64, steps []BondStep) uint64 {
	idx := StepIndexAtSupply(supply+1, steps)
	if idx < 0 || supply >= steps[idx].RangeTo {
		return 0
	}
	return steps[idx].RangeTo - supply
}

// EstimateFromSteps integrates the step table over quantity tickets starting
// at supply: upward for buys, downward for sells. It is the local fallback
// when the curve's own estimator cannot be reached.
func EstimateFromSteps(dir Direction, quantity, supply uint64, steps []BondStep) (*big.Int, error) {
	if len(steps) == 0 {
		return nil, ErrEmptySteps
	}

	var from, to uint64 // ticket ordinals, inclusive
	switch dir {
	case DirectionBuy:
		if quantity > RemainingCapacity(supply, steps) {
			return nil, ErrCapacityExceeded
		}
		from, to = supply+1, supply+quantity
	case DirectionSell:
		if quantity > supply {
			return nil, ErrSupplyExceeded
		}
		from, to = supply-quantity+1, supply
	default:
		return nil, fmt.Errorf("curve: unknown direction %q", dir)
	}

	total := new(big.Int)
	if quantity == 0 {
		return total, nil
	}

	lower := uint64(0) // last ordinal of the previous step
	for _, s := range steps {
		lo := max(from, lower+1)
		hi := min(to, s.RangeTo)
		if lo <= hi {
			n := new(big.Int).SetUint64(hi - lo + 1)
			total.Add(total, n.Mul(n, s.Price))
		}
		if s.RangeTo >= to {
			break
		}
		lower = s.RangeTo
	}

	return total, nil
}
