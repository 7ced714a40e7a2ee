package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/logger"
	"github.com/fd1az/curve-arbitrage/internal/ratelimit"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// DetectorConfig holds detection thresholds and live triggers.
type DetectorConfig struct {
	SeasonID            uint64
	MinProfitabilityBps decimal.Decimal
	MaxResults          int
	// Triggers selects the logs that start a fresh pass in Run.
	Triggers blockchainDomain.LogFilter
}

// DefaultDetectorConfig returns a 200 bps threshold and a cap of 10 results.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinProfitabilityBps: decimal.NewFromInt(200),
		MaxResults:          10,
	}
}

type detectorMetrics struct {
	scans         metric.Int64Counter
	skips         metric.Int64Counter
	opportunities metric.Int64Counter
	scanDuration  metric.Float64Histogram
}

// Detector compares each participant's curve-implied price with the
// oracle's market price and ranks the divergences.
type Detector struct {
	cfg       DetectorConfig
	oracle    OracleReader
	positions PositionSource
	limiter   *ratelimit.Limiter
	log       logger.LoggerInterface
	now       func() time.Time

	mu        sync.Mutex
	reporters []Reporter
	last      *domain.Report

	tracer  trace.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a Detector. A nil limiter does not throttle oracle
// reads.
func NewDetector(cfg DetectorConfig, oracle OracleReader, positions PositionSource, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Detector, error) {
	def := DefaultDetectorConfig()
	if cfg.MinProfitabilityBps.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "min profitability must not be negative")
	}
	if cfg.MinProfitabilityBps.IsZero() {
		cfg.MinProfitabilityBps = def.MinProfitabilityBps
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}

	d := &Detector{
		cfg:       cfg,
		oracle:    oracle,
		positions: positions,
		limiter:   limiter,
		log:       log,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.scans, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Detection passes"),
	)
	if err != nil {
		return err
	}

	d.metrics.skips, err = meter.Int64Counter(
		"arbitrage_skips_total",
		metric.WithDescription("Entities skipped during a pass"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunities, err = meter.Int64Counter(
		"arbitrage_opportunities_total",
		metric.WithDescription("Opportunities above the profitability threshold"),
	)
	if err != nil {
		return err
	}

	d.metrics.scanDuration, err = meter.Float64Histogram(
		"arbitrage_scan_duration_ms",
		metric.WithDescription("Detection pass latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// AddReporter registers r for every pass run by Run.
func (d *Detector) AddReporter(r Reporter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reporters = append(d.reporters, r)
}

// Last returns the most recent report.
func (d *Detector) Last() (domain.Report, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return domain.Report{}, false
	}
	return *d.last, true
}

// Scan runs one detection pass. Only a failure to list participants fails
// the pass; per-entity failures become skipped results.
func (d *Detector) Scan(ctx context.Context) (domain.Report, error) {
	ctx, span := d.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(attribute.Int64("season", int64(d.cfg.SeasonID))),
	)
	defer span.End()

	start := d.now()

	entities, err := d.positions.Participants(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "participants")
		return domain.Report{}, err
	}

	results := make([]domain.ScanResult, 0, len(entities))
	for _, entity := range entities {
		if err := d.limiter.Wait(ctx); err != nil {
			return domain.Report{}, err
		}
		res := d.evaluate(ctx, entity)
		if res.Opportunity == nil {
			d.metrics.skips.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(res.Skip))))
			if res.Err != nil {
				d.log.Debug(ctx, "entity skipped", "entity", entity.Hex(), "reason", string(res.Skip), "error", res.Err)
			}
		}
		results = append(results, res)
	}

	report := domain.Report{
		Opportunities: domain.Rank(results, d.cfg.MaxResults),
		Results:       results,
		Entities:      len(entities),
		StartedAt:     start,
		Duration:      d.now().Sub(start),
	}

	d.metrics.scans.Add(ctx, 1)
	d.metrics.opportunities.Add(ctx, int64(len(report.Opportunities)))
	d.metrics.scanDuration.Record(ctx, float64(report.Duration.Milliseconds()))

	span.SetAttributes(
		attribute.Int("entities", report.Entities),
		attribute.Int("opportunities", len(report.Opportunities)),
	)
	span.SetStatus(codes.Ok, "scanned")

	d.mu.Lock()
	d.last = &report
	d.mu.Unlock()

	return report, nil
}

func (d *Detector) evaluate(ctx context.Context, entity common.Address) domain.ScanResult {
	record, err := d.oracle.PriceRecord(ctx, d.cfg.SeasonID, entity)
	if err != nil {
		return domain.Skipped(entity, domain.SkipOracleReadFailed, err)
	}
	if !record.Active {
		return domain.Skipped(entity, domain.SkipOracleInactive, nil)
	}

	pos, err := d.positions.Position(ctx, entity)
	if err != nil {
		return domain.Skipped(entity, domain.SkipPositionReadFailed, err)
	}

	return domain.Evaluate(entity, pos.ImpliedPrice(), record.MarketPrice(), d.cfg.MinProfitabilityBps, d.now())
}

// Run scans once, then again whenever a trigger log arrives, until ctx
// ends. Logs that arrive while a pass is running collapse into a single
// follow-up pass.
func (d *Detector) Run(ctx context.Context, watcher LogWatcher) error {
	logs, err := watcher.WatchLogs(ctx, d.cfg.Triggers)
	if err != nil {
		return err
	}

	d.log.Info(ctx, "arbitrage detector running",
		"season", d.cfg.SeasonID,
		"min_profitability_bps", d.cfg.MinProfitabilityBps.String(),
		"max_results", d.cfg.MaxResults,
	)

	d.scanAndReport(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-logs:
			if !ok {
				return nil
			}
			pending := 1 + drain(logs)
			d.log.Debug(ctx, "scan triggered", "block", l.BlockNumber, "logs", pending)
			d.scanAndReport(ctx)
		}
	}
}

// RunEvery scans and reports every interval until ctx ends. It is the
// fallback when live triggers are disabled.
func (d *Detector) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("arbitrage: scan interval must be positive, got %s", interval)
	}

	d.log.Info(ctx, "arbitrage detector polling", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.scanAndReport(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.scanAndReport(ctx)
		}
	}
}

func (d *Detector) scanAndReport(ctx context.Context) {
	report, err := d.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.log.Warn(ctx, "arbitrage scan failed", "error", err)
		}
		return
	}

	d.mu.Lock()
	reporters := append([]Reporter(nil), d.reporters...)
	d.mu.Unlock()

	for _, r := range reporters {
		if err := r.Report(ctx, report); err != nil {
			d.log.Warn(ctx, "reporter failed", "reporter", fmt.Sprintf("%T", r), "error", err)
		}
	}
}

// drain empties whatever is already buffered in ch and returns the count.
func drain[T any](ch <-chan T) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
