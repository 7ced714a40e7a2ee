package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CurveConfig is the mutable part of the curve, changed by every trade.
type CurveConfig struct {
	TotalSupply      uint64
	Reserves         *big.Int
	CurrentStepIndex uint32
	BuyFeeBps        uint16
	SellFeeBps       uint16
	TradingLocked    bool
}

// FeeBps returns the fee rate for dir.
func (c CurveConfig) FeeBps(dir Direction) uint16 {
	if dir == DirectionSell {
		return c.SellFeeBps
	}
	return c.BuyFeeBps
}

// CurrentStep is the step the next purchase prices against.
type CurrentStep struct {
	Index   uint32
	Price   *big.Int
	RangeTo uint64
}

// TradingWindow bounds when trades are accepted. A zero bound is open-ended.
type TradingWindow struct {
	Opens  time.Time
	Closes time.Time
}

// IsOpen reports whether now falls inside the window.
func (w TradingWindow) IsOpen(now time.Time) bool {
	if !w.Opens.IsZero() && now.Before(w.Opens) {
		return false
	}
	if !w.Closes.IsZero() && !now.Before(w.Closes) {
		return false
	}
	return true
}

// StateRead is one round of remote reads. Steps is nil when the step table
// was not requested.
type StateRead struct {
	Config  CurveConfig
	Current CurrentStep
	Window  TradingWindow
	Steps   []BondStep
}

// Snapshot is the cached view of one curve.
type Snapshot struct {
	Curve     common.Address
	Config    CurveConfig
	Current   CurrentStep
	Window    TradingWindow
	Steps     []BondStep
	UpdatedAt time.Time
}

// Clone returns a copy that shares no step slice or big.Int with s.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Config.Reserves = cloneInt(s.Config.Reserves)
	out.Current.Price = cloneInt(s.Current.Price)
	if s.Steps != nil {
		out.Steps = make([]BondStep, len(s.Steps))
		for i, st := range s.Steps {
			st.Price = cloneInt(st.Price)
			out.Steps[i] = st
		}
	}
	return out
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// StepsLoaded reports whether the immutable step table is present.
func (s *Snapshot) StepsLoaded() bool {
	return s != nil && len(s.Steps) > 0
}

// PriceAtSupply prices the next ticket against the cached step table.
func (s *Snapshot) PriceAtSupply(supply uint64) *big.Int {
	return PriceAtSupply(supply, s.Steps)
}

// RemainingCapacity is how many tickets can still be bought.
func (s *Snapshot) RemainingCapacity() uint64 {
	return RemainingCapacity(s.Config.TotalSupply, s.Steps)
}

// CanTrade reports whether the curve accepts trades at now.
func (s *Snapshot) CanTrade(now time.Time) bool {
	return !s.Config.TradingLocked && s.Window.IsOpen(now)
}
