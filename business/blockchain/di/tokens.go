// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/curve-arbitrage/business/blockchain/app"
	"github.com/fd1az/curve-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	LogSubscriber = di.NewToken[app.LogSubscriber]("blockchain:logSubscriber")
	GasOracle     = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetLogSubscriber(c di.ServiceRegistry) app.LogSubscriber {
	return di.GetToken(c, LogSubscriber)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
