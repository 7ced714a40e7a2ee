// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction says which venue is cheaper.
type Direction string

const (
	// DirectionBuyCurve means the curve-implied price is below the market.
	DirectionBuyCurve Direction = "buy_curve"
	// DirectionBuyMarket means the market price is at or below the curve.
	DirectionBuyMarket Direction = "buy_market"
)

func (d Direction) String() string {
	switch d {
	case DirectionBuyCurve:
		return "buy on curve, sell on market"
	case DirectionBuyMarket:
		return "buy on market, sell on curve"
	default:
		return "unknown"
	}
}

var (
	two       = decimal.NewFromInt(2)
	bpsFactor = decimal.NewFromInt(10000)
)

// Opportunity is a price divergence for one entity. It is recomputed on
// every pass and never persisted.
type Opportunity struct {
	ID                uuid.UUID       `json:"id"`
	Entity            common.Address  `json:"entity"`
	ImpliedCurvePrice decimal.Decimal `json:"implied_curve_price"`
	MarketPrice       decimal.Decimal `json:"market_price"`
	ProfitabilityBps  decimal.Decimal `json:"profitability_bps"`
	Direction         Direction       `json:"direction"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Profitability is |curve - market| over the mean of both prices, in bps.
// The mean keeps the figure symmetric in which side is the reference.
func Profitability(curve, market decimal.Decimal) decimal.Decimal {
	avg := curve.Add(market).Div(two)
	if !avg.IsPositive() {
		return decimal.Zero
	}
	return curve.Sub(market).Abs().Div(avg).Mul(bpsFactor)
}

// NewOpportunity prices the gap between the two sides.
func NewOpportunity(entity common.Address, curve, market decimal.Decimal, at time.Time) Opportunity {
	dir := DirectionBuyMarket
	if curve.LessThan(market) {
		dir = DirectionBuyCurve
	}
	return Opportunity{
		ID:                uuid.New(),
		Entity:            entity,
		ImpliedCurvePrice: curve,
		MarketPrice:       market,
		ProfitabilityBps:  Profitability(curve, market),
		Direction:         dir,
		Timestamp:         at,
	}
}
