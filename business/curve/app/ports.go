// Package app contains application services and port definitions for the curve context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
)

// StateReader reads the remote curve state.
type StateReader interface {
	// ReadState fetches config, current step and trading window. The step
	// table is only fetched when withSteps is set.
	ReadState(ctx context.Context, curve common.Address, withSteps bool) (*domain.StateRead, error)
}

// Estimator is the curve's own read-only cost function.
type Estimator interface {
	EstimateBuy(ctx context.Context, curve common.Address, quantity uint64) (*big.Int, error)
	EstimateSell(ctx context.Context, curve common.Address, quantity uint64) (*big.Int, error)
}

// HoldingsReader reads participant balances on the curve.
type HoldingsReader interface {
	PlayerTickets(ctx context.Context, curve, player common.Address) (uint64, error)
	Participants(ctx context.Context, curve common.Address) ([]common.Address, error)
}

// CurveReader is everything the curve context reads from the chain.
type CurveReader interface {
	StateReader
	Estimator
	HoldingsReader
}

// AddressCaller invokes a no-argument view method that returns an address.
type AddressCaller interface {
	CallAddress(ctx context.Context, target common.Address, method string) (common.Address, error)
}

// SnapshotSource exposes the latest cached curve snapshot.
type SnapshotSource interface {
	Snapshot() *domain.Snapshot
}
