package domain

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SkipReason says why an entity produced no opportunity.
type SkipReason string

const (
	SkipOracleReadFailed   SkipReason = "oracle_read_failed"
	SkipOracleInactive     SkipReason = "oracle_inactive"
	SkipPositionReadFailed SkipReason = "position_read_failed"
	SkipInvalidPrice       SkipReason = "invalid_price"
	SkipBelowThreshold     SkipReason = "below_threshold"
)

// ScanResult is the outcome for one entity: either an opportunity or the
// reason it was skipped.
type ScanResult struct {
	Entity      common.Address
	Opportunity *Opportunity
	Skip        SkipReason
	Err         error
}

// Skipped builds a result for an entity that was dropped.
func Skipped(entity common.Address, reason SkipReason, err error) ScanResult {
	return ScanResult{Entity: entity, Skip: reason, Err: err}
}

// Found builds a result carrying an opportunity.
func Found(o Opportunity) ScanResult {
	return ScanResult{Entity: o.Entity, Opportunity: &o}
}

// Evaluate compares the two prices for entity and applies the threshold.
func Evaluate(entity common.Address, curve, market, minBps decimal.Decimal, at time.Time) ScanResult {
	if curve.IsNegative() || market.IsNegative() || curve.Add(market).IsZero() {
		return Skipped(entity, SkipInvalidPrice, nil)
	}

	opp := NewOpportunity(entity, curve, market, at)
	if opp.ProfitabilityBps.LessThan(minBps) {
		return Skipped(entity, SkipBelowThreshold, nil)
	}
	return Found(opp)
}

// Report is the output of one detection pass.
type Report struct {
	Opportunities []Opportunity
	Results       []ScanResult
	Entities      int
	StartedAt     time.Time
	Duration      time.Duration
}

// SkipCounts tallies skipped entities by reason.
func (r Report) SkipCounts() map[SkipReason]int {
	out := make(map[SkipReason]int)
	for _, res := range r.Results {
		if res.Opportunity == nil {
			out[res.Skip]++
		}
	}
	return out
}

// Rank keeps the opportunities from results, sorted by profitability
// descending and truncated to limit. limit <= 0 keeps everything.
func Rank(results []ScanResult, limit int) []Opportunity {
	out := make([]Opportunity, 0, len(results))
	for _, r := range results {
		if r.Opportunity != nil {
			out = append(out, *r.Opportunity)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitabilityBps.GreaterThan(out[j].ProfitabilityBps)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
