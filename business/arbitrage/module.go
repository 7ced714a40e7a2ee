// Package arbitrage implements the arbitrage bounded context: comparing the
// curve-implied price of each participant with the oracle's market price.
package arbitrage

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/curve-arbitrage/business/arbitrage/di"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/infra/report"
	blockchainDomain "github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	curveDI "github.com/fd1az/curve-arbitrage/business/curve/di"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/di"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
	"github.com/fd1az/curve-arbitrage/internal/ratelimit"
	"github.com/fd1az/curve-arbitrage/internal/store/redis"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Oracle (private - internal dependency)
	di.RegisterToken(c, arbitrageDI.Oracle, func(sr di.ServiceRegistry) *ethereum.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewOracle(ethClient, cfg.Network.OracleAddressHex(), log)
		if err != nil {
			panic("failed to create oracle reader: " + err.Error())
		}
		return oracle
	})

	// Register Detector (public - exposed to other modules)
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		oracle := arbitrageDI.GetOracle(sr)

		detector, err := app.NewDetector(app.DetectorConfig{
			SeasonID:            cfg.Network.SeasonID,
			MinProfitabilityBps: cfg.Arbitrage.MinProfitabilityBpsDecimal(),
			MaxResults:          cfg.Arbitrage.MaxResults,
			Triggers: blockchainDomain.LogFilter{
				Addresses: []common.Address{oracle.Address(), cfg.Network.CurveAddressHex()},
				Topics:    ethereum.TriggerTopics(),
			},
		},
			oracle,
			curveDI.GetPositionService(sr),
			ratelimit.New(cfg.Arbitrage.ReadsPerSecond, 1),
			log,
		)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}

		// The dashboard replaces the console table in TUI mode.
		if cfg.Arbitrage.TUIMode {
			detector.AddReporter(report.NewTUI())
		} else {
			detector.AddReporter(report.NewConsole(nil))
		}
		if c.Has("redis") {
			detector.AddReporter(report.NewRedis(sr.Get("redis").(*redis.Client), cfg.Redis.TTL))
		}
		return detector
	})

	return nil
}

// Startup logs the detection settings. The live detector is run by the
// caller, which owns the log stream.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	mono.Logger().Info(ctx, "arbitrage module started",
		"oracle", cfg.Network.OracleAddress,
		"season", cfg.Network.SeasonID,
		"min_bps", cfg.Arbitrage.MinProfitabilityBps,
		"max_results", cfg.Arbitrage.MaxResults,
		"live", cfg.Arbitrage.Live,
	)

	// Polling mode scans on a fixed cadence, so a missing pass means the loop
	// is stuck. Live mode scans only when logs arrive.
	if h := mono.Health(); h != nil && !cfg.Arbitrage.Live && cfg.Curve.PollInterval > 0 {
		detector := arbitrageDI.GetDetector(mono.Services())
		maxGap := 3 * cfg.Curve.PollInterval
		h.RegisterCheck("detector", func(context.Context) (bool, string) {
			rep, ok := detector.Last()
			if !ok {
				return false, "no scan yet"
			}
			if gap := time.Since(rep.StartedAt); gap > maxGap {
				return false, fmt.Sprintf("last scan %s ago", gap.Truncate(time.Second))
			}
			return true, ""
		})
	}
	return nil
}
