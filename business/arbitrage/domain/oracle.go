package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is the oracle's view of one entity. All prices are in bps of
// a unit payout.
type PriceRecord struct {
	RaffleProbabilityBps uint64
	MarketSentimentBps   uint64
	HybridPriceBps       uint64
	LastUpdate           time.Time
	Active               bool
}

// MarketPrice is the market-sentiment side of the record as a unit price.
func (r PriceRecord) MarketPrice() decimal.Decimal {
	return decimal.NewFromInt(int64(r.MarketSentimentBps)).Div(bpsFactor)
}
