package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
)

// PositionService reads participant positions on demand.
type PositionService struct {
	curve     common.Address
	snapshots SnapshotSource
	state     StateReader
	holdings  HoldingsReader
}

// NewPositionService creates a PositionService bound to one curve.
func NewPositionService(curve common.Address, snapshots SnapshotSource, state StateReader, holdings HoldingsReader) *PositionService {
	return &PositionService{
		curve:     curve,
		snapshots: snapshots,
		state:     state,
		holdings:  holdings,
	}
}

// Position returns player's share of the issued supply. Total supply comes
// from the cached snapshot when it belongs to this curve, otherwise from a
// direct read.
func (s *PositionService) Position(ctx context.Context, player common.Address) (domain.Position, error) {
	owned, err := s.holdings.PlayerTickets(ctx, s.curve, player)
	if err != nil {
		return domain.Position{}, apperror.New(apperror.CodePositionReadError,
			apperror.WithContext(player.Hex()), apperror.WithCause(err))
	}

	total, err := s.totalSupply(ctx)
	if err != nil {
		return domain.Position{}, err
	}

	return domain.NewPosition(player, owned, total), nil
}

// Participants lists every address holding a position.
func (s *PositionService) Participants(ctx context.Context) ([]common.Address, error) {
	players, err := s.holdings.Participants(ctx, s.curve)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("participants"), apperror.WithCause(err))
	}
	return players, nil
}

func (s *PositionService) totalSupply(ctx context.Context) (uint64, error) {
	if snap := s.snapshots.Snapshot(); snap != nil && snap.Curve == s.curve {
		return snap.Config.TotalSupply, nil
	}

	read, err := s.state.ReadState(ctx, s.curve, false)
	if err != nil {
		return 0, apperror.New(apperror.CodePositionReadError,
			apperror.WithContext("total supply"), apperror.WithCause(err))
	}
	return read.Config.TotalSupply, nil
}
