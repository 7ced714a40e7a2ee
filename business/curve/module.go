// Package curve implements the curve bounded context: cached curve state,
// pricing and position reads.
package curve

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/curve-arbitrage/business/curve/app"
	curveDI "github.com/fd1az/curve-arbitrage/business/curve/di"
	"github.com/fd1az/curve-arbitrage/business/curve/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/di"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
)

// Module implements the curve bounded context.
type Module struct{}

// RegisterServices registers all curve services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reader (private - batched eth_call over the shared connection)
	di.RegisterToken(c, curveDI.Reader, func(sr di.ServiceRegistry) app.CurveReader {
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		rpcClient := sr.Get("rpcClient").(*rpc.Client)

		reader, err := ethereum.NewReader(ethClient, rpcClient, log)
		if err != nil {
			panic("failed to create curve reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, curveDI.AddressCaller, func(sr di.ServiceRegistry) app.AddressCaller {
		return curveDI.GetReader(sr).(app.AddressCaller)
	})

	di.RegisterToken(c, curveDI.Holdings, func(sr di.ServiceRegistry) app.HoldingsReader {
		return curveDI.GetReader(sr)
	})

	// Register StateCache (public)
	di.RegisterToken(c, curveDI.StateCache, func(sr di.ServiceRegistry) *app.StateCache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		cache, err := app.NewStateCache(curveDI.GetReader(sr), app.StateCacheConfig{
			PollInterval:  cfg.Curve.PollInterval,
			DebounceDelay: cfg.Curve.DebounceDelay,
			Active:        cfg.Curve.Active,
		}, log)
		if err != nil {
			panic("failed to create curve state cache: " + err.Error())
		}
		return cache
	})

	// Register QuoteService (public)
	di.RegisterToken(c, curveDI.QuoteService, func(sr di.ServiceRegistry) *app.QuoteService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewQuoteService(curveDI.GetStateCache(sr), curveDI.GetReader(sr), cfg.Curve.EstimateTTL, log)
		if err != nil {
			panic("failed to create quote service: " + err.Error())
		}
		return svc
	})

	// Register PositionService (public)
	di.RegisterToken(c, curveDI.PositionService, func(sr di.ServiceRegistry) *app.PositionService {
		cfg := sr.Get("config").(*config.Config)
		reader := curveDI.GetReader(sr)
		return app.NewPositionService(cfg.Network.CurveAddressHex(), curveDI.GetStateCache(sr), reader, reader)
	})

	// Register TokenResolver (public)
	di.RegisterToken(c, curveDI.TokenResolver, func(sr di.ServiceRegistry) *app.TokenResolver {
		cfg := sr.Get("config").(*config.Config)
		override, _ := cfg.Network.PaymentTokenHex()
		return app.NewTokenResolver(curveDI.GetAddressCaller(sr), cfg.Network.CurveAddressHex(), override)
	})

	return nil
}

// Startup points the cache at the configured curve and loads it once.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	cache := curveDI.GetStateCache(mono.Services())
	quotes := curveDI.GetQuoteService(mono.Services())

	cache.SetTarget(cfg.Network.CurveAddressHex())

	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	cache.Refresh(loadCtx)
	cancel()

	if snap := cache.Snapshot(); snap != nil {
		log.Info(ctx, "curve state loaded",
			"curve", snap.Curve.Hex(),
			"total_supply", snap.Config.TotalSupply,
			"steps", len(snap.Steps),
			"trading_locked", snap.Config.TradingLocked,
		)
	} else {
		// Not fatal: the poller and later refreshes retry.
		log.Warn(ctx, "initial curve state read failed", "curve", cfg.Network.CurveAddress)
	}

	if h := mono.Health(); h != nil {
		staleAfter := cfg.Curve.StaleAfter
		h.RegisterCheck("curve_cache", func(context.Context) (bool, string) {
			age, ok := cache.Age()
			if !ok {
				return false, "no snapshot"
			}
			if staleAfter > 0 && age > staleAfter {
				return false, fmt.Sprintf("snapshot is %s old", age.Truncate(time.Second))
			}
			return true, ""
		})
	}

	go func() {
		<-ctx.Done()
		cache.Close()
		quotes.Close()
	}()

	log.Info(ctx, "curve module started", "active", cfg.Curve.Active)
	return nil
}
