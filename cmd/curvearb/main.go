// Package main is the entry point for the curve arbitrage client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/fd1az/curve-arbitrage/business/arbitrage"
	"github.com/fd1az/curve-arbitrage/business/blockchain"
	"github.com/fd1az/curve-arbitrage/business/curve"
	"github.com/fd1az/curve-arbitrage/business/trading"
	"github.com/fd1az/curve-arbitrage/internal/apm"
	"github.com/fd1az/curve-arbitrage/internal/config"
	"github.com/fd1az/curve-arbitrage/internal/health"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/metrics"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type mode string

const (
	modeWatch    mode = "watch"
	modeScan     mode = "scan"
	modeQuote    mode = "quote"
	modeBuy      mode = "buy"
	modeSell     mode = "sell"
	modePosition mode = "position"
)

func (m mode) valid() bool {
	switch m {
	case modeWatch, modeScan, modeQuote, modeBuy, modeSell, modePosition:
		return true
	}
	return false
}

// options are the parsed command line flags.
type options struct {
	configPath string
	mode       mode
	qty        uint64
	side       string
	player     string
	tui        bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	var modeFlag string
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&modeFlag, "mode", string(modeWatch), "watch | scan | quote | buy | sell | position")
	flag.Uint64Var(&opts.qty, "qty", 1, "Ticket quantity for quote, buy and sell (and dashboard trades)")
	flag.StringVar(&opts.side, "side", "buy", "Quote side: buy | sell")
	flag.StringVar(&opts.player, "player", "", "Participant address for -mode position (defaults to the signing account)")
	flag.BoolVar(&opts.tui, "tui", false, "Show the dashboard in watch mode")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("curvearb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	opts.mode = mode(strings.ToLower(modeFlag))
	if !opts.mode.valid() {
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", modeFlag)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tuiMode := opts.tui && opts.mode == modeWatch
	cfg.Arbitrage.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// The dashboard owns the terminal.
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting curvearb",
		"version", version,
		"mode", string(opts.mode),
		"network", cfg.Network.Name,
		"environment", cfg.App.Environment,
	)

	var metricsProvider *metrics.Metrics
	if cfg.Telemetry.Enabled {
		stopTracing, mp, err := setupTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stopTracing()
		defer func() { _ = mp.Shutdown(context.Background()) }()
		metricsProvider = mp
	}

	// Health endpoints only make sense for the long-running mode.
	var healthServer *health.Server
	if opts.mode == modeWatch && cfg.App.HealthPort > 0 {
		healthServer = health.NewServer(cfg.App.HealthPort, version, log)
		if metricsProvider != nil {
			healthServer.Handle("/metrics", metricsProvider.Handler())
		}
		addr, err := healthServer.Start()
		if err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
			healthServer = nil
		} else {
			log.Info(ctx, "health server started", "addr", addr)
			defer func() { _ = healthServer.Stop(context.Background()) }()
		}
	}

	mono, err := monolith.New(ctx, cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // log subscriptions and pre-flight
		&curve.Module{},      // state cache, quotes, positions
		&trading.Module{},    // order lifecycle, depends on curve and blockchain
		&arbitrage.Module{},  // detector, depends on curve
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	switch opts.mode {
	case modeWatch:
		return runWatch(ctx, mono, opts, metricsProvider)
	case modeScan:
		return runScan(ctx, mono, os.Stdout)
	case modeQuote:
		return runQuote(ctx, mono, opts, os.Stdout)
	case modeBuy, modeSell:
		return runTrade(ctx, mono, opts, os.Stdout)
	case modePosition:
		return runPosition(ctx, mono, opts, os.Stdout)
	}
	return fmt.Errorf("unhandled mode %q", opts.mode)
}

// setupTelemetry installs the tracer and meter providers.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), *metrics.Metrics, error) {
	headers, err := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
	if err != nil {
		return nil, nil, err
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     headers,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	metricOpts := []metrics.OptionFn{metrics.WithServiceName(cfg.Telemetry.ServiceName)}
	if cfg.Telemetry.MetricsOTLP {
		metricOpts = append(metricOpts,
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
			metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
				cfg.Telemetry.OTLPEndpoint, headers, cfg.Telemetry.OTLPInsecure)),
		)
	}
	mp, err := metrics.NewMetricProvider(ctx, metricOpts...)
	if err != nil {
		_ = tp.Stop()
		return nil, nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	stop := func() {
		if err := tp.Stop(); err != nil {
			log.Warn(context.Background(), "trace provider shutdown failed", "error", err)
		}
	}
	return stop, mp, nil
}

// signer returns the configured account, or an error in read-only setups.
func signer(cfg *config.Config) (common.Address, error) {
	if cfg.Network.PrivateKey == "" {
		return common.Address{}, errors.New("network.private_key is not set")
	}
	return accountFromKey(cfg.Network.PrivateKey)
}
