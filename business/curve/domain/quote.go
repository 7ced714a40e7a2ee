package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// EstimateSource records where a quote's base amount came from.
type EstimateSource string

const (
	SourceRemote EstimateSource = "remote" // the curve's own estimator
	SourceLocal  EstimateSource = "local"  // integrated from the cached step table
)

// Quote is a fee-inclusive price for a quantity of tickets. It is derived on
// demand and never persisted.
type Quote struct {
	Direction    Direction
	Quantity     uint64
	BaseAmount   *big.Int
	FeeBps       uint16
	FeeAmount    *big.Int
	TotalWithFee *big.Int
	Source       EstimateSource
	QuotedAt     time.Time
}

// NewQuote applies the direction's fee to base.
func NewQuote(dir Direction, quantity uint64, base *big.Int, feeBps uint16, source EstimateSource) Quote {
	if base == nil {
		base = new(big.Int)
	}
	return Quote{
		Direction:    dir,
		Quantity:     quantity,
		BaseAmount:   new(big.Int).Set(base),
		FeeBps:       feeBps,
		FeeAmount:    FeeAmount(base, feeBps),
		TotalWithFee: ApplyFee(base, feeBps, dir),
		Source:       source,
		QuotedAt:     time.Now(),
	}
}

// Bound is the slippage-protected limit sent with the trade: the maximum
// spend for a buy, the minimum proceeds for a sell.
func (q Quote) Bound(slippagePct decimal.Decimal) *big.Int {
	return ApplySlippageBound(q.TotalWithFee, slippagePct, q.Direction)
}

// IsZeroProceeds reports a sell whose fee consumed the whole base amount.
func (q Quote) IsZeroProceeds() bool {
	return q.Direction == DirectionSell && q.TotalWithFee.Sign() == 0
}
