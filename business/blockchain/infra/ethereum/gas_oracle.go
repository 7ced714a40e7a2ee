package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/blockchain/app"
	"github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/cache"
	"github.com/fd1az/curve-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasClient is the part of ethclient.Client the oracle uses.
type GasClient interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long to cache the tip cap
	MaxTipCap   *big.Int      // ceiling applied to suggestions
	MarginPct   uint64        // added to gas estimates
	CallTimeout time.Duration
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    12 * time.Second, // ~1 block
		MaxTipCap:   big.NewInt(50_000_000_000),
		MarginPct:   20,
		CallTimeout: 10 * time.Second,
	}
}

type gasOracleMetrics struct {
	tipFetches  metric.Int64Counter
	tipGwei     metric.Float64Gauge
	estimates   metric.Int64Counter
	simulations metric.Int64Counter
	reverts     metric.Int64Counter
}

// GasOracle implements app.GasOracle over the shared client.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	client GasClient

	tipCache *cache.Cache[string, *domain.GasPrice]

	cb     *circuitbreaker.CircuitBreaker[*big.Int]
	callCB *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(client GasClient, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:   cfg,
		logger:   log,
		client:   client,
		tipCache: cache.New[string, *domain.GasPrice](5 * time.Minute),
		tracer:   otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	g.cb = circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle"))

	callCfg := circuitbreaker.DefaultConfig("gas-simulate")
	callCfg.IsSuccessful = func(err error) bool { return err == nil || evm.IsRevert(err) }
	g.callCB = circuitbreaker.New[[]byte](callCfg)

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.tipFetches, err = meter.Int64Counter(
		"gas_tip_fetches_total",
		metric.WithDescription("Gas tip cap fetches that missed the cache"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.tipGwei, err = meter.Float64Gauge(
		"gas_tip_cap_gwei",
		metric.WithDescription("Current suggested tip cap in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimates, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.simulations, err = meter.Int64Counter(
		"tx_simulations_total",
		metric.WithDescription("Transaction pre-flight simulations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.reverts, err = meter.Int64Counter(
		"tx_simulation_reverts_total",
		metric.WithDescription("Simulations that reverted"),
		metric.WithUnit("{call}"),
	)
	return err
}

// GasTipCap returns the suggested priority fee, cached for about a block.
func (g *GasOracle) GasTipCap(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.tip_cap")
	defer span.End()

	if p, ok := g.tipCache.Get(ctx, "tip"); ok {
		span.AddEvent("cache_hit")
		return p, nil
	}

	g.metrics.tipFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
		defer cancel()
		return g.client.SuggestGasTipCap(callCtx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas tip cap"))
	}

	if g.config.MaxTipCap != nil && wei.Cmp(g.config.MaxTipCap) > 0 {
		g.logger.Warn(ctx, "gas tip cap above ceiling, clamping",
			"suggested", wei.String(),
			"max", g.config.MaxTipCap.String(),
		)
		wei = g.config.MaxTipCap
	}

	price := domain.NewGasPrice(wei)
	g.tipCache.Set(ctx, "tip", price, g.config.CacheTTL)
	g.metrics.tipGwei.Record(ctx, price.Gwei())

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")
	return price, nil
}

// EstimateGas estimates msg and applies the configured margin.
func (g *GasOracle) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(attribute.Int("data_len", len(msg.Data))),
	)
	defer span.End()

	g.metrics.estimates.Add(ctx, 1)

	gas, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		if evm.IsRevert(err) {
			// keep the payload for classification
			return 0, err
		}
		return 0, apperror.New(apperror.CodeGasEstimationFailed, apperror.WithCause(err))
	}

	gas = domain.WithMargin(gas, g.config.MarginPct)
	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")
	return gas, nil
}

// Simulate runs msg as eth_call at block. Reverts are returned as the
// original RPC error.
func (g *GasOracle) Simulate(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	ctx, span := g.tracer.Start(ctx, "gas.simulate",
		trace.WithAttributes(attribute.String("from", msg.From.Hex())),
	)
	defer span.End()

	g.metrics.simulations.Add(ctx, 1)

	out, err := g.callCB.Execute(func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
		defer cancel()
		return g.client.CallContract(callCtx, msg, block)
	})
	if err != nil {
		span.RecordError(err)
		if evm.IsRevert(err) {
			g.metrics.reverts.Add(ctx, 1)
			span.SetStatus(codes.Error, "reverted")
			return nil, err
		}
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.External(apperror.CodeContractCallFailed, "simulate", err)
	}

	span.SetStatus(codes.Ok, "simulated")
	return out, nil
}

// Close stops the cache janitor.
func (g *GasOracle) Close() error {
	g.tipCache.Close()
	return nil
}
