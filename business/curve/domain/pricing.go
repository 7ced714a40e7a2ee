package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10000

var (
	bpsDenominator = big.NewInt(BpsDenominator)
	hundred        = decimal.NewFromInt(100)
)

// Direction is the side of a curve trade.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// IsValid reports whether d is buy or sell.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// FeeAmount returns amount * feeBps / 10000, never more than amount.
func FeeAmount(amount *big.Int, feeBps uint16) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	fee.Quo(fee, bpsDenominator)
	if fee.Cmp(amount) > 0 {
		return new(big.Int).Set(amount)
	}
	return fee
}

// ApplyFee adds the fee to a buy cost or deducts it from sale proceeds. Sale
// proceeds are floored at zero.
func ApplyFee(amount *big.Int, feeBps uint16, dir Direction) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	fee := FeeAmount(amount, feeBps)
	if dir == DirectionBuy {
		return new(big.Int).Add(amount, fee)
	}
	out := new(big.Int).Sub(amount, fee)
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// ApplySlippageBound returns the ceiling a buyer is willing to pay
// (amount * (1 + pct/100), rounded up) or the floor a seller is willing to
// accept (amount * (1 - pct/100), rounded down). Negative pct is treated as
// zero; the floor never goes below zero.
func ApplySlippageBound(amount *big.Int, slippagePct decimal.Decimal, dir Direction) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	if slippagePct.IsNegative() {
		slippagePct = decimal.Zero
	}

	base := decimal.NewFromBigInt(amount, 0)

	if dir == DirectionBuy {
		return base.Mul(hundred.Add(slippagePct)).Div(hundred).Ceil().BigInt()
	}

	keep := hundred.Sub(slippagePct)
	if keep.IsNegative() {
		return new(big.Int)
	}
	return base.Mul(keep).Div(hundred).Floor().BigInt()
}

// ImpliedPriceFromProbability converts a share of supply in basis points
// into the price a fully collateralized outcome share would trade at.
func ImpliedPriceFromProbability(probabilityBps uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(probabilityBps)).Div(decimal.NewFromInt(BpsDenominator))
}
