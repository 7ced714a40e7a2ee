package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Position is a participant's share of the curve's issued supply.
type Position struct {
	Participant    common.Address
	OwnedQuantity  uint64
	TotalSupply    uint64
	ProbabilityBps uint32
}

// NewPosition derives the probability share from owned over total, floored
// to whole basis points.
func NewPosition(participant common.Address, owned, total uint64) Position {
	p := Position{
		Participant:   participant,
		OwnedQuantity: owned,
		TotalSupply:   total,
	}
	if total == 0 || owned == 0 {
		return p
	}
	if owned >= total {
		p.ProbabilityBps = BpsDenominator
		return p
	}

	bps := new(big.Int).SetUint64(owned)
	bps.Mul(bps, bpsDenominator)
	bps.Quo(bps, new(big.Int).SetUint64(total))
	p.ProbabilityBps = uint32(bps.Uint64())
	return p
}

// ImpliedPrice is the curve-side price of this position.
func (p Position) ImpliedPrice() decimal.Decimal {
	return ImpliedPriceFromProbability(p.ProbabilityBps)
}
