package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	arbitrageDI "github.com/fd1az/curve-arbitrage/business/arbitrage/di"
	arbitrageEth "github.com/fd1az/curve-arbitrage/business/arbitrage/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/infra/report"
	blockchainApp "github.com/fd1az/curve-arbitrage/business/blockchain/app"
	blockchainDI "github.com/fd1az/curve-arbitrage/business/blockchain/di"
	blockchainDomain "github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	curveApp "github.com/fd1az/curve-arbitrage/business/curve/app"
	curveDI "github.com/fd1az/curve-arbitrage/business/curve/di"
	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	tradingApp "github.com/fd1az/curve-arbitrage/business/trading/app"
	tradingDI "github.com/fd1az/curve-arbitrage/business/trading/di"
	tradingDomain "github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/asset"
	"github.com/fd1az/curve-arbitrage/internal/metrics"
	"github.com/fd1az/curve-arbitrage/internal/monolith"
	"github.com/fd1az/curve-arbitrage/pkg/ui"
)

// runWatch keeps the curve cache fresh and runs the detector until ctx ends
// or the dashboard quits.
func runWatch(ctx context.Context, mono monolith.Monolith, opts options, mp *metrics.Metrics) error {
	cfg := mono.Config()
	log := mono.Logger()
	svcs := mono.Services()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cache := curveDI.GetStateCache(svcs)
	detector := arbitrageDI.GetDetector(svcs)
	chain := blockchainDI.GetBlockchainService(svcs)

	cache.SetActive(true)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watchCurve(gctx, chain, cache, cfg.Network.CurveAddressHex(), cfg.Curve.DebounceDelay)
	})

	g.Go(func() error {
		if cfg.Arbitrage.Live {
			return detector.Run(gctx, chain)
		}
		return detector.RunEvery(gctx, cfg.Curve.PollInterval)
	})

	if mp != nil && cfg.Telemetry.PrometheusPort > 0 {
		g.Go(func() error {
			addr := net.JoinHostPort("", strconv.Itoa(cfg.Telemetry.PrometheusPort))
			return metrics.ServePrometheusMetrics(gctx, addr, mp.Handler(), log)
		})
	}

	if opts.tui {
		g.Go(func() error {
			// Quitting the dashboard stops everything else.
			defer cancel()
			return runDashboard(gctx, mono, opts.qty)
		})
	}

	log.Info(ctx, "watching curve",
		"curve", cfg.Network.CurveAddress,
		"live", cfg.Arbitrage.Live,
		"poll_interval", cfg.Curve.PollInterval.String(),
	)

	err := g.Wait()
	log.Info(context.Background(), "shutting down")
	return err
}

// watchCurve refreshes the cache, debounced, on every PositionCreated log.
func watchCurve(ctx context.Context, chain *blockchainApp.BlockchainService, cache *curveApp.StateCache, curveAddr common.Address, debounce time.Duration) error {
	logs, err := chain.WatchLogs(ctx, blockchainDomain.LogFilter{
		Addresses: []common.Address{curveAddr},
		Topics:    [][]common.Hash{{arbitrageEth.PositionCreatedTopic}},
	})
	if err != nil {
		return fmt.Errorf("failed to watch curve logs: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-logs:
			if !ok {
				return nil
			}
			cache.DebouncedRefresh(debounce)
		}
	}
}

// runDashboard runs the TUI and feeds it snapshots, connection status and
// trade transitions.
func runDashboard(ctx context.Context, mono monolith.Monolith, qty uint64) error {
	cfg := mono.Config()
	svcs := mono.Services()

	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	cache := curveDI.GetStateCache(svcs)
	cache.OnUpdate(func(s curveDomain.Snapshot) {
		ui.Send(ui.SnapshotMsg{Snapshot: s, Token: paymentAsset(ctx, mono)})
	})
	if snap := cache.Snapshot(); snap != nil {
		go ui.Send(ui.SnapshotMsg{Snapshot: *snap, Token: paymentAsset(ctx, mono)})
	}

	if cfg.Network.PrivateKey != "" {
		exec := tradingDI.GetExecutor(svcs)
		exec.OnTransition(func(st tradingDomain.State) {
			ui.Send(ui.TradeMsg{State: st})
		})
		slippage := cfg.Trading.SlippagePctDecimal()
		ui.OnTrade = func(dir curveDomain.Direction) {
			_, err := exec.Execute(ctx, tradingDomain.NewRequest(dir, qty, slippage))
			switch {
			case err == nil:
			case tradingApp.IsTradeInFlight(err):
				ui.Send(ui.LogMsg{Level: "warn", Message: "a trade is already in flight"})
			default:
				ui.Send(ui.LogMsg{Level: "warn", Message: err.Error()})
			}
		}
	}

	chain := blockchainDI.GetBlockchainService(svcs)
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := chain.ConnectionStatus()
				ui.Send(ui.ConnectionStatusMsg{
					Name:      cfg.Network.Name,
					Connected: st.State == blockchainDomain.StateConnected,
					UsingHTTP: st.UsingHTTP,
					LastBlock: st.LastBlock,
				})
			}
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runScan runs one detection pass and prints the ranked result.
func runScan(ctx context.Context, mono monolith.Monolith, w io.Writer) error {
	rep, err := arbitrageDI.GetDetector(mono.Services()).Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return report.NewConsole(w).Report(ctx, rep)
}

// runQuote prints the fee-inclusive quote and slippage bound for -qty.
func runQuote(ctx context.Context, mono monolith.Monolith, opts options, w io.Writer) error {
	dir := curveDomain.Direction(strings.ToLower(opts.side))
	if !dir.IsValid() {
		return fmt.Errorf("unknown side %q", opts.side)
	}

	q, err := curveDI.GetQuoteService(mono.Services()).Quote(ctx, dir, opts.qty)
	if err != nil {
		return err
	}

	token := paymentAsset(ctx, mono)
	slippage := mono.Config().Trading.SlippagePctDecimal()

	fmt.Fprintf(w, "%s %d tickets (%s estimate)\n", dir, q.Quantity, q.Source)
	fmt.Fprintf(w, "  base:      %s\n", formatAmount(token, q.BaseAmount))
	fmt.Fprintf(w, "  fee:       %s (%.2f%%)\n", formatAmount(token, q.FeeAmount), float64(q.FeeBps)/100)
	fmt.Fprintf(w, "  total:     %s\n", formatAmount(token, q.TotalWithFee))
	fmt.Fprintf(w, "  bound:     %s (slippage %s%%)\n", formatAmount(token, q.Bound(slippage)), slippage.String())
	return nil
}

// runTrade executes a buy or sell and prints its outcome.
func runTrade(ctx context.Context, mono monolith.Monolith, opts options, w io.Writer) error {
	cfg := mono.Config()
	if cfg.Network.PrivateKey == "" {
		return errors.New("trading requires network.private_key")
	}

	dir := curveDomain.DirectionBuy
	if opts.mode == modeSell {
		dir = curveDomain.DirectionSell
	}

	exec := tradingDI.GetExecutor(mono.Services())
	exec.OnTransition(func(st tradingDomain.State) {
		fmt.Fprintf(w, "  -> %s\n", st.Phase())
	})

	st, err := exec.Execute(ctx, tradingDomain.NewRequest(dir, opts.qty, cfg.Trading.SlippagePctDecimal()))
	if outcome, ok := tradingDomain.OutcomeOf(st, time.Now()); ok {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(outcome); encErr != nil {
			return encErr
		}
	}
	return err
}

// runPosition prints a participant's position and implied price.
func runPosition(ctx context.Context, mono monolith.Monolith, opts options, w io.Writer) error {
	var player common.Address
	switch {
	case opts.player != "":
		if !common.IsHexAddress(opts.player) {
			return fmt.Errorf("invalid player address %q", opts.player)
		}
		player = common.HexToAddress(opts.player)
	default:
		acct, err := signer(mono.Config())
		if err != nil {
			return fmt.Errorf("no -player given and %w", err)
		}
		player = acct
	}

	pos, err := curveDI.GetPositionService(mono.Services()).Position(ctx, player)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "participant:   %s\n", pos.Participant.Hex())
	fmt.Fprintf(w, "tickets:       %d / %d\n", pos.OwnedQuantity, pos.TotalSupply)
	fmt.Fprintf(w, "probability:   %d bps\n", pos.ProbabilityBps)
	fmt.Fprintf(w, "implied price: %s\n", pos.ImpliedPrice().StringFixed(4))
	return nil
}

// paymentAsset returns the registered payment token, or nil when it has not
// been resolved.
func paymentAsset(ctx context.Context, mono monolith.Monolith) *asset.Asset {
	token, err := curveDI.GetTokenResolver(mono.Services()).PaymentToken(ctx)
	if err != nil {
		return nil
	}
	a, ok := mono.AssetRegistry().Token(mono.Config().Network.ChainID, token)
	if !ok {
		return nil
	}
	return a
}

func formatAmount(token *asset.Asset, raw *big.Int) string {
	if raw == nil {
		return "-"
	}
	if token == nil {
		return raw.String() + " (raw)"
	}
	return asset.NewAmount(token, raw).String()
}

func accountFromKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid network.private_key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
