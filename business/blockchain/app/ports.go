// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/curve-arbitrage/business/blockchain/domain"
)

// LogSubscriber streams contract logs.
type LogSubscriber interface {
	// Subscribe starts delivering logs matching filter. The channel is closed
	// when ctx is done or the subscriber is closed.
	Subscribe(ctx context.Context, filter domain.LogFilter) (<-chan types.Log, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Status returns detailed connection information.
	Status() domain.ConnectionStatus
}

// GasOracle provides fee data and call pre-flight.
type GasOracle interface {
	// GasTipCap returns the suggested EIP-1559 priority fee.
	GasTipCap(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates msg with a safety margin applied.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// Simulate runs msg as eth_call at block (nil = latest). A revert is
	// returned unwrapped so its payload survives.
	Simulate(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}
