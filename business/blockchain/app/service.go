package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/curve-arbitrage/business/blockchain/domain"
)

// BlockchainService coordinates chain access for the other contexts.
type BlockchainService struct {
	subscriber LogSubscriber
	gasOracle  GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber LogSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// WatchLogs starts a log subscription for filter.
func (s *BlockchainService) WatchLogs(ctx context.Context, filter domain.LogFilter) (<-chan types.Log, error) {
	return s.subscriber.Subscribe(ctx, filter)
}

// GasTipCap returns the suggested priority fee in wei.
func (s *BlockchainService) GasTipCap(ctx context.Context) (*big.Int, error) {
	p, err := s.gasOracle.GasTipCap(ctx)
	if err != nil {
		return nil, err
	}
	return p.Wei, nil
}

// EstimateGas estimates msg with margin.
func (s *BlockchainService) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return s.gasOracle.EstimateGas(ctx, msg)
}

// Simulate runs msg as eth_call, preserving revert payloads.
func (s *BlockchainService) Simulate(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return s.gasOracle.Simulate(ctx, msg, block)
}

// ConnectionStatus returns the log subscription status.
func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.subscriber.Status()
}
