// Package blockchain implements the chain access shared by the other bounded
// contexts: contract log subscriptions and transaction pre-flight.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/curve-arbitrage/business/blockchain/app"
	blockchainDI "github.com/fd1az/curve-arbitrage/business/blockchain/di"
	"github.com/fd1az/curve-arbitrage/business/blockchain/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/di"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register LogSubscriber (private - internal dependency)
	di.RegisterToken(c, blockchainDI.LogSubscriber, func(sr di.ServiceRegistry) app.LogSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		var dial ethereum.Dialer
		if cfg.Network.WebSocketURL != "" {
			dial = ethereum.DialEthclient
		}

		sub, err := ethereum.NewSubscriber(ethereum.DefaultSubscriberConfig(cfg.Network.WebSocketURL), ethClient, dial, log)
		if err != nil {
			panic("failed to create log subscriber: " + err.Error())
		}
		return sub
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(ethClient, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetLogSubscriber(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup closes the subscriber and oracle when ctx ends.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	sub := blockchainDI.GetLogSubscriber(mono.Services())
	oracle := blockchainDI.GetGasOracle(mono.Services())

	go func() {
		<-ctx.Done()
		if c, ok := sub.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		if c, ok := oracle.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}()

	log.Info(ctx, "blockchain module started", "ws", mono.Config().Network.WebSocketURL != "")
	return nil
}
