// Package ui provides the Bubble Tea dashboard for watch mode.
package ui

import (
	arbitrageDomain "github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	tradingDomain "github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/asset"
)

// Message types for TUI updates

// ReportMsg carries the ranked result of a detection pass.
type ReportMsg struct {
	Report arbitrageDomain.Report
}

// SnapshotMsg is sent whenever the curve state cache stores a snapshot.
// Token formats raw amounts; nil shows them in base units.
type SnapshotMsg struct {
	Snapshot curveDomain.Snapshot
	Token    *asset.Asset
}

// TradeMsg is sent on every order state transition.
type TradeMsg struct {
	State tradingDomain.State
}

// ConnectionStatusMsg is sent when the log subscription changes transport.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	UsingHTTP bool
	LastBlock uint64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
