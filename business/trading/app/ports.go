// Package app contains the order executor and its port definitions.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/business/trading/domain"
)

// QuoteSource prices a trade against the cached curve.
type QuoteSource interface {
	Quote(ctx context.Context, dir curveDomain.Direction, quantity uint64) (curveDomain.Quote, error)
}

// SnapshotSource exposes the cached curve state.
type SnapshotSource interface {
	Snapshot() *curveDomain.Snapshot
}

// Refresher refreshes the curve cache. ForceRefresh must not reuse a read
// that started before the call.
type Refresher interface {
	Refresh(ctx context.Context)
	ForceRefresh(ctx context.Context)
	DebouncedRefresh(delay time.Duration)
}

// TokenSource resolves the token the curve settles in.
type TokenSource interface {
	PaymentToken(ctx context.Context) (common.Address, error)
}

// Ledger reads token balances and allowances.
type Ledger interface {
	Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// HoldingsReader reads ticket balances on the curve.
type HoldingsReader interface {
	PlayerTickets(ctx context.Context, curve, player common.Address) (uint64, error)
}

// TradeCall is the curve call a trade sends: buyTokens(quantity, maxCost) or
// sellTokens(quantity, minProceeds).
type TradeCall struct {
	Curve     common.Address
	Direction curveDomain.Direction
	Quantity  uint64
	Limit     *big.Int
}

// Submitter signs and broadcasts transactions.
type Submitter interface {
	Account() common.Address
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Submit(ctx context.Context, call TradeCall) (common.Hash, error)
}

// Simulator runs a trade as eth_call. A nil block means latest. The returned
// error keeps any revert payload.
type Simulator interface {
	Simulate(ctx context.Context, call TradeCall, block *big.Int) error
}

// Receipt is the part of a transaction receipt the executor inspects.
type Receipt struct {
	Success     bool
	BlockNumber *big.Int
	GasUsed     uint64
}

// Confirmer waits for a transaction to be mined.
type Confirmer interface {
	WaitReceipt(ctx context.Context, tx common.Hash) (*Receipt, error)
}

// Notifier receives every finished trade.
type Notifier interface {
	Notify(ctx context.Context, outcome domain.Outcome) error
}

// Observer receives every state transition, in order.
type Observer func(domain.State)
