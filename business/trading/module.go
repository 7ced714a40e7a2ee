// Package trading implements the trading bounded context: the buy/sell order
// lifecycle against the curve.
package trading

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	blockchainDI "github.com/fd1az/curve-arbitrage/business/blockchain/di"
	curveDI "github.com/fd1az/curve-arbitrage/business/curve/di"
	"github.com/fd1az/curve-arbitrage/business/trading/app"
	tradingDI "github.com/fd1az/curve-arbitrage/business/trading/di"
	"github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/business/trading/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/business/trading/infra/notify"
	"github.com/fd1az/curve-arbitrage/internal/asset"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/di"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
	"github.com/fd1az/curve-arbitrage/internal/store/postgres"
	"github.com/fd1az/curve-arbitrage/internal/store/redis"
)

// Module implements the trading bounded context.
type Module struct{}

// RegisterServices registers all trading services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Ledger (public - balance reads are also shown by the CLI)
	di.RegisterToken(c, tradingDI.Ledger, func(sr di.ServiceRegistry) *ethereum.Ledger {
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		ledger, err := ethereum.NewLedger(ethClient, log)
		if err != nil {
			panic("failed to create ledger: " + err.Error())
		}
		return ledger
	})

	// Register Transactor (private - needs network.private_key)
	di.RegisterToken(c, tradingDI.Transactor, func(sr di.ServiceRegistry) *ethereum.Transactor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		tx, err := ethereum.NewTransactor(ethClient, blockchainDI.GetBlockchainService(sr),
			cfg.Network.PrivateKey, cfg.Network.ChainID, log)
		if err != nil {
			panic("failed to create transactor: " + err.Error())
		}
		return tx
	})

	// Register Notifier (private - log, plus redis and postgres when enabled)
	di.RegisterToken(c, tradingDI.Notifier, func(sr di.ServiceRegistry) app.Notifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		out := notify.Multi{notify.NewLogNotifier(log)}
		if c.Has("redis") {
			out = append(out, notify.NewRedisNotifier(sr.Get("redis").(*redis.Client), cfg.Redis.TTL))
		}
		if c.Has("postgres") {
			pg := sr.Get("postgres").(*postgres.Client)
			out = append(out, notify.NewJournal(pg.Pool(), cfg.Network.CurveAddressHex()))
		}
		return out
	})

	// Register Executor (public)
	di.RegisterToken(c, tradingDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		cache := curveDI.GetStateCache(sr)
		tx := tradingDI.GetTransactor(sr)

		exec, err := app.NewExecutor(app.ExecutorConfig{
			Curve:                cfg.Network.CurveAddressHex(),
			SlippagePct:          cfg.Trading.SlippagePctDecimal(),
			ReceiptTimeout:       cfg.Trading.ReceiptTimeout,
			IndeterminateRefresh: cfg.Trading.RefreshDelay,
			SimulateBeforeSubmit: cfg.Trading.SimulateBeforeSubmit,
			UnlimitedApproval:    cfg.Trading.UnlimitedApproval,
		}, app.Dependencies{
			Quotes:    curveDI.GetQuoteService(sr),
			Snapshots: cache,
			Refresher: cache,
			Token:     curveDI.GetTokenResolver(sr),
			Ledger:    tradingDI.GetLedger(sr),
			Holdings:  curveDI.GetHoldings(sr),
			Submitter: tx,
			Simulator: tx,
			Confirmer: tx,
			Notifier:  tradingDI.GetNotifier(sr),
		}, log)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return exec
	})

	return nil
}

// Startup registers the payment token and, when a signing key is
// configured, logs every order transition.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	resolveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := registerPaymentToken(resolveCtx, mono); err != nil {
		// Not fatal: quotes still work in raw units.
		log.Warn(ctx, "payment token not resolved", "curve", cfg.Network.CurveAddress, "error", err)
	}

	if cfg.Network.PrivateKey == "" {
		log.Info(ctx, "trading module started read-only", "reason", "no private key")
		return nil
	}

	exec := tradingDI.GetExecutor(mono.Services())
	exec.OnTransition(func(st domain.State) {
		log.Debug(ctx, "order transition", "phase", string(st.Phase()))
	})

	log.Info(ctx, "trading module started",
		"account", tradingDI.GetTransactor(mono.Services()).Account().Hex(),
		"slippage_pct", cfg.Trading.SlippagePct,
		"simulate", cfg.Trading.SimulateBeforeSubmit,
	)
	return nil
}

func registerPaymentToken(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	token, err := curveDI.GetTokenResolver(mono.Services()).PaymentToken(ctx)
	if err != nil {
		return err
	}
	info, err := tradingDI.GetLedger(mono.Services()).Info(ctx, token)
	if err != nil {
		return err
	}

	a, err := asset.New(asset.TokenID(cfg.Network.ChainID, token), info.Symbol, info.Decimals)
	if err != nil {
		return err
	}
	if _, ok := mono.AssetRegistry().Get(a.ID()); ok {
		return nil
	}
	if err := mono.AssetRegistry().Register(a); err != nil {
		return err
	}

	mono.Logger().Info(ctx, "payment token registered",
		"token", token.Hex(), "symbol", info.Symbol, "decimals", info.Decimals)
	return nil
}
