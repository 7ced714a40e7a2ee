package domain

import (
	"math/big"
	"time"
)

// GasPrice is a fee quote in wei with a gwei view for display.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	f := new(big.Float).SetInt(p.Wei)
	f.Quo(f, big.NewFloat(1e9))
	g, _ := f.Float64()
	return g
}

// WithMargin returns gas increased by pct percent.
func WithMargin(gas uint64, pct uint64) uint64 {
	return gas + gas*pct/100
}
