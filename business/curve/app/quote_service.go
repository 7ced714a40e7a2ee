package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/cache"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const tracerName = "curve"

type estimateKey struct {
	curve    common.Address
	dir      domain.Direction
	quantity uint64
	supply   uint64
}

type quoteMetrics struct {
	quotes         metric.Int64Counter
	localFallbacks metric.Int64Counter
	memoHits       metric.Int64Counter
}

// QuoteService prices buys and sells against the cached curve. The base
// amount comes from the curve's estimator; fees and slippage bounds are
// applied locally.
type QuoteService struct {
	snapshots SnapshotSource
	estimator Estimator
	memo      *cache.Cache[estimateKey, *big.Int]
	ttl       time.Duration
	log       logger.LoggerInterface

	tracer  trace.Tracer
	metrics *quoteMetrics
}

// NewQuoteService creates a QuoteService. Estimates are memoized for ttl per
// curve, direction, quantity and supply.
func NewQuoteService(snapshots SnapshotSource, estimator Estimator, ttl time.Duration, log logger.LoggerInterface) (*QuoteService, error) {
	s := &QuoteService{
		snapshots: snapshots,
		estimator: estimator,
		memo:      cache.New[estimateKey, *big.Int](time.Minute),
		ttl:       ttl,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	meter := otel.Meter(meterName)
	s.metrics = &quoteMetrics{}
	var err error

	s.metrics.quotes, err = meter.Int64Counter("curve_quotes_total",
		metric.WithDescription("Quotes computed"))
	if err != nil {
		return nil, err
	}
	s.metrics.localFallbacks, err = meter.Int64Counter("curve_quote_local_fallbacks_total",
		metric.WithDescription("Quotes integrated from the cached step table"))
	if err != nil {
		return nil, err
	}
	s.metrics.memoHits, err = meter.Int64Counter("curve_quote_memo_hits_total",
		metric.WithDescription("Estimates served from memory"))
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Quote returns the fee-inclusive amount for quantity tickets in dir.
func (s *QuoteService) Quote(ctx context.Context, dir domain.Direction, quantity uint64) (domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "curve.quote",
		trace.WithAttributes(
			attribute.String("direction", string(dir)),
			attribute.Int64("quantity", int64(quantity)),
		),
	)
	defer span.End()

	if !dir.IsValid() {
		return domain.Quote{}, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("direction %q", dir))
	}
	if quantity == 0 {
		return domain.Quote{}, apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be positive")
	}

	snap := s.snapshots.Snapshot()
	if snap == nil {
		span.SetStatus(codes.Error, "cache empty")
		return domain.Quote{}, apperror.New(apperror.CodeCacheEmpty)
	}

	if err := checkBounds(dir, quantity, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Quote{}, err
	}

	base, source, err := s.estimate(ctx, dir, quantity, snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return domain.Quote{}, err
	}

	q := domain.NewQuote(dir, quantity, base, snap.Config.FeeBps(dir), source)
	s.metrics.quotes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", string(dir)),
		attribute.String("source", string(source)),
	))

	span.SetAttributes(
		attribute.String("base", q.BaseAmount.String()),
		attribute.String("total_with_fee", q.TotalWithFee.String()),
		attribute.String("source", string(source)),
	)
	span.SetStatus(codes.Ok, "quoted")

	return q, nil
}

// SpotPrice is the unit price of the next ticket.
func (s *QuoteService) SpotPrice() (*big.Int, error) {
	snap := s.snapshots.Snapshot()
	if !snap.StepsLoaded() {
		return nil, apperror.New(apperror.CodeCacheEmpty)
	}
	return snap.PriceAtSupply(snap.Config.TotalSupply + 1), nil
}

// Close stops the memo janitor.
func (s *QuoteService) Close() {
	s.memo.Close()
}

func (s *QuoteService) estimate(ctx context.Context, dir domain.Direction, quantity uint64, snap *domain.Snapshot) (*big.Int, domain.EstimateSource, error) {
	key := estimateKey{curve: snap.Curve, dir: dir, quantity: quantity, supply: snap.Config.TotalSupply}
	if v, ok := s.memo.Get(ctx, key); ok {
		s.metrics.memoHits.Add(ctx, 1)
		return new(big.Int).Set(v), domain.SourceRemote, nil
	}

	var (
		base *big.Int
		err  error
	)
	if dir == domain.DirectionBuy {
		base, err = s.estimator.EstimateBuy(ctx, snap.Curve, quantity)
	} else {
		base, err = s.estimator.EstimateSell(ctx, snap.Curve, quantity)
	}
	if err == nil && base != nil {
		s.memo.Set(ctx, key, new(big.Int).Set(base), s.ttl)
		return base, domain.SourceRemote, nil
	}

	if !snap.StepsLoaded() {
		return nil, "", apperror.New(apperror.CodeEstimateFailed, apperror.WithCause(err))
	}

	s.log.Warn(ctx, "remote estimate failed, integrating cached steps",
		"curve", snap.Curve.Hex(),
		"direction", string(dir),
		"quantity", quantity,
		"error", err,
	)
	s.metrics.localFallbacks.Add(ctx, 1)

	local, lerr := domain.EstimateFromSteps(dir, quantity, snap.Config.TotalSupply, snap.Steps)
	if lerr != nil {
		return nil, "", mapStepError(lerr)
	}
	return local, domain.SourceLocal, nil
}

func checkBounds(dir domain.Direction, quantity uint64, snap *domain.Snapshot) error {
	switch {
	case dir == domain.DirectionBuy && snap.StepsLoaded() && quantity > snap.RemainingCapacity():
		return apperror.Validation(apperror.CodeCapacityExceeded,
			fmt.Sprintf("requested %d, remaining %d", quantity, snap.RemainingCapacity()))
	case dir == domain.DirectionSell && quantity > snap.Config.TotalSupply:
		return apperror.Validation(apperror.CodeSupplyExceeded,
			fmt.Sprintf("requested %d, supply %d", quantity, snap.Config.TotalSupply))
	}
	return nil
}

func mapStepError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return apperror.New(apperror.CodeCapacityExceeded, apperror.WithCause(err))
	case errors.Is(err, domain.ErrSupplyExceeded):
		return apperror.New(apperror.CodeSupplyExceeded, apperror.WithCause(err))
	default:
		return apperror.New(apperror.CodeEstimateFailed, apperror.WithCause(err))
	}
}
