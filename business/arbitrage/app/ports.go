// Package app contains the arbitrage detector and its port definitions.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
)

// OracleReader reads the external price record of an entity.
type OracleReader interface {
	PriceRecord(ctx context.Context, seasonID uint64, entity common.Address) (domain.PriceRecord, error)
}

// PositionSource lists the curve's participants and reads their positions.
type PositionSource interface {
	Participants(ctx context.Context) ([]common.Address, error)
	Position(ctx context.Context, player common.Address) (curveDomain.Position, error)
}

// LogWatcher streams contract logs until ctx ends.
type LogWatcher interface {
	WatchLogs(ctx context.Context, filter blockchainDomain.LogFilter) (<-chan types.Log, error)
}

// Reporter receives the ranked result of every detection pass.
type Reporter interface {
	Report(ctx context.Context, report domain.Report) error
}
