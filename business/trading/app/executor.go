package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const (
	tracerName = "trading"
	meterName  = "trading"
)

// ExecutorConfig holds executor settings.
type ExecutorConfig struct {
	Curve                common.Address
	SlippagePct          decimal.Decimal
	ReceiptTimeout       time.Duration
	IndeterminateRefresh time.Duration // delay before the best-effort refresh
	SimulateBeforeSubmit bool
	UnlimitedApproval    bool
}

// Dependencies groups the executor's collaborators.
type Dependencies struct {
	Quotes    QuoteSource
	Snapshots SnapshotSource
	Refresher Refresher
	Token     TokenSource
	Ledger    Ledger
	Holdings  HoldingsReader
	Submitter Submitter
	Simulator Simulator
	Confirmer Confirmer
	Notifier  Notifier
}

type executorMetrics struct {
	trades     metric.Int64Counter
	failures   metric.Int64Counter
	approvals  metric.Int64Counter
	confirmLat metric.Float64Histogram
}

// Executor drives one trade at a time through the order lifecycle. It never
// retries; a failed trade is retried by executing a new request.
type Executor struct {
	cfg  ExecutorConfig
	deps Dependencies
	log  logger.LoggerInterface
	now  func() time.Time

	busy      atomic.Bool
	mu        sync.Mutex
	observers []Observer

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig, deps Dependencies, log logger.LoggerInterface) (*Executor, error) {
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 2 * time.Minute
	}
	if cfg.IndeterminateRefresh <= 0 {
		cfg.IndeterminateRefresh = 3 * time.Second
	}

	e := &Executor{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.trades, err = meter.Int64Counter(
		"trading_trades_total",
		metric.WithDescription("Finished trades by terminal phase"),
	)
	if err != nil {
		return err
	}

	e.metrics.failures, err = meter.Int64Counter(
		"trading_failures_total",
		metric.WithDescription("Failed trades by phase and code"),
	)
	if err != nil {
		return err
	}

	e.metrics.approvals, err = meter.Int64Counter(
		"trading_approvals_total",
		metric.WithDescription("Spending authorization transactions sent"),
	)
	if err != nil {
		return err
	}

	e.metrics.confirmLat, err = meter.Float64Histogram(
		"trading_confirmation_latency_ms",
		metric.WithDescription("Time from submission to receipt in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// OnTransition registers an observer for every state change.
func (e *Executor) OnTransition(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// Busy reports whether a trade is in flight.
func (e *Executor) Busy() bool {
	return e.busy.Load()
}

// Execute runs req to a terminal state. The returned error is the Failed
// state's error, or a trade-in-flight error when another trade is running,
// in which case no transition is emitted.
func (e *Executor) Execute(ctx context.Context, req domain.Request) (domain.State, error) {
	if !e.busy.CompareAndSwap(false, true) {
		err := apperror.Validation(apperror.CodeTradeInFlight, req.ID.String())
		return domain.Failed{Request: req, From: domain.PhaseIdle, Err: err}, err
	}
	defer e.busy.Store(false)

	ctx, span := e.tracer.Start(ctx, "trading.execute",
		trace.WithAttributes(
			attribute.String("request_id", req.ID.String()),
			attribute.String("direction", string(req.Direction)),
			attribute.Int64("quantity", int64(req.Quantity)),
		),
	)
	defer span.End()

	var st domain.State = domain.Validating{Request: req}
	e.emit(st)

	for !domain.IsTerminal(st) {
		st = e.step(ctx, st)
		e.emit(st)
	}

	e.finish(ctx, st)

	if f, ok := st.(domain.Failed); ok {
		span.RecordError(f.Err)
		span.SetStatus(codes.Error, string(apperror.GetCode(f.Err)))
		return st, f.Err
	}
	span.SetStatus(codes.Ok, "settled")
	return st, nil
}

func (e *Executor) step(ctx context.Context, st domain.State) domain.State {
	switch s := st.(type) {
	case domain.Validating:
		return e.validate(ctx, s)
	case domain.Authorizing:
		return e.authorize(ctx, s)
	case domain.Submitting:
		return e.submit(ctx, s)
	case domain.Confirming:
		return e.confirm(ctx, s)
	default:
		return domain.Failed{
			From: st.Phase(),
			Err:  apperror.New(apperror.CodeInvalidState, apperror.WithContext(string(st.Phase()))),
		}
	}
}

// validate runs the local checks, reads the quote and decides whether an
// authorization is needed. It sends no transaction.
func (e *Executor) validate(ctx context.Context, s domain.Validating) domain.State {
	req := s.Request
	fail := func(err error) domain.State {
		return domain.Failed{Request: req, From: domain.PhaseValidating, Err: err}
	}

	if !req.Direction.IsValid() {
		return fail(apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("direction %q", req.Direction)))
	}
	if req.Quantity == 0 {
		return fail(apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be a positive integer"))
	}
	if req.SlippagePct.IsNegative() {
		return fail(apperror.Validation(apperror.CodeInvalidSlippage, req.SlippagePct.String()))
	}

	snap := e.deps.Snapshots.Snapshot()
	if snap == nil {
		e.deps.Refresher.Refresh(ctx)
		if snap = e.deps.Snapshots.Snapshot(); snap == nil {
			return fail(apperror.New(apperror.CodeCacheEmpty))
		}
	}
	if snap.Config.TradingLocked {
		return fail(apperror.Validation(apperror.CodeTradingLocked, snap.Curve.Hex()))
	}
	if !snap.Window.IsOpen(e.now()) {
		return fail(apperror.Validation(apperror.CodeTradingWindowClosed, snap.Curve.Hex()))
	}

	account := e.deps.Submitter.Account()

	if req.Direction == curveDomain.DirectionSell {
		held, err := e.deps.Holdings.PlayerTickets(ctx, e.cfg.Curve, account)
		if err != nil {
			return fail(apperror.New(apperror.CodePositionReadError, apperror.WithCause(err)))
		}
		if held < req.Quantity {
			return fail(apperror.Validation(apperror.CodeInsufficientTickets,
				fmt.Sprintf("hold %d, selling %d", held, req.Quantity)))
		}
	}

	quote, err := e.deps.Quotes.Quote(ctx, req.Direction, req.Quantity)
	if err != nil {
		return fail(err)
	}
	if quote.IsZeroProceeds() {
		return fail(apperror.Validation(apperror.CodeInvalidQuantity, "sale proceeds are zero after fees"))
	}

	plan := domain.Plan{
		Quote: quote,
		Bound: quote.Bound(req.SlippagePct),
	}

	if req.Direction == curveDomain.DirectionSell {
		return domain.Submitting{Request: req, Plan: plan}
	}

	token, err := e.deps.Token.PaymentToken(ctx)
	if err != nil {
		return fail(err)
	}
	plan.Token = token

	balance, err := e.deps.Ledger.Balance(ctx, token, account)
	if err != nil {
		return fail(apperror.External(apperror.CodeContractCallFailed, "balanceOf", err))
	}
	if balance.Cmp(plan.Bound) < 0 {
		return fail(apperror.Validation(apperror.CodeInsufficientBalance,
			fmt.Sprintf("balance %s, need up to %s", balance, plan.Bound)))
	}

	allowance, err := e.deps.Ledger.Allowance(ctx, token, account, e.cfg.Curve)
	if err != nil {
		return fail(apperror.External(apperror.CodeContractCallFailed, "allowance", err))
	}
	if allowance.Cmp(plan.Bound) < 0 {
		return domain.Authorizing{Request: req, Plan: plan, Allowance: allowance}
	}

	return domain.Submitting{Request: req, Plan: plan}
}

// authorize sends the approval and waits for it. Any failure here ends the
// trade before the trade transaction exists.
func (e *Executor) authorize(ctx context.Context, s domain.Authorizing) domain.State {
	amount := s.Plan.Bound
	if e.cfg.UnlimitedApproval {
		amount = new(big.Int).Set(math.MaxBig256)
	}

	e.metrics.approvals.Add(ctx, 1)
	tx, err := e.deps.Submitter.Approve(ctx, s.Plan.Token, e.cfg.Curve, amount)
	if err != nil {
		code := apperror.CodeAuthorizationFailed
		if domain.IsSignerRejection(err.Error()) {
			code = apperror.CodeAuthorizationRejected
		}
		return domain.Failed{Request: s.Request, From: domain.PhaseAuthorizing,
			Err: apperror.New(code, apperror.WithCause(err))}
	}

	e.log.Info(ctx, "authorization submitted",
		"request_id", s.Request.ID.String(),
		"tx", tx.Hex(),
		"amount", amount.String(),
	)

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ReceiptTimeout)
	receipt, err := e.deps.Confirmer.WaitReceipt(waitCtx, tx)
	cancel()
	if err != nil {
		return domain.Failed{Request: s.Request, From: domain.PhaseAuthorizing, ApprovalTx: tx,
			Err: apperror.New(apperror.CodeAuthorizationFailed,
				apperror.WithContext("confirmation not observed"), apperror.WithCause(err))}
	}
	if !receipt.Success {
		return domain.Failed{Request: s.Request, From: domain.PhaseAuthorizing, ApprovalTx: tx,
			Err: apperror.New(apperror.CodeAuthorizationFailed,
				apperror.WithContext("authorization reverted in block "+receipt.BlockNumber.String()))}
	}

	return domain.Submitting{Request: s.Request, Plan: s.Plan, ApprovalTx: tx}
}

// submit optionally simulates, then broadcasts the trade.
func (e *Executor) submit(ctx context.Context, s domain.Submitting) domain.State {
	call := e.tradeCall(s.Request, s.Plan)
	fail := func(err error) domain.State {
		return domain.Failed{Request: s.Request, From: domain.PhaseSubmitting, ApprovalTx: s.ApprovalTx, Err: err}
	}

	if e.cfg.SimulateBeforeSubmit {
		if err := e.deps.Simulator.Simulate(ctx, call, nil); err != nil {
			if !evm.IsRevert(err) {
				return fail(apperror.External(apperror.CodeContractCallFailed, "simulate", err))
			}
			return fail(e.revertError(err, apperror.CodeSimulationReverted))
		}
	}

	tx, err := e.deps.Submitter.Submit(ctx, call)
	if err != nil {
		switch {
		case domain.IsSignerRejection(err.Error()):
			return fail(apperror.New(apperror.CodeSignerRejected, apperror.WithCause(err)))
		case evm.IsRevert(err):
			// gas estimation inside the signer hit a revert
			return fail(e.revertError(err, apperror.CodeSimulationReverted))
		default:
			return fail(apperror.New(apperror.CodeSubmissionFailed, apperror.WithCause(err)))
		}
	}

	e.log.Info(ctx, "trade submitted",
		"request_id", s.Request.ID.String(),
		"direction", string(s.Request.Direction),
		"quantity", s.Request.Quantity,
		"limit", call.Limit.String(),
		"tx", tx.Hex(),
	)

	return domain.Confirming{Request: s.Request, Plan: s.Plan, ApprovalTx: s.ApprovalTx, TxHash: tx}
}

// confirm waits for the receipt. The wait is detached from ctx: once the
// trade is broadcast it cannot be cancelled.
func (e *Executor) confirm(ctx context.Context, s domain.Confirming) domain.State {
	start := e.now()
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ReceiptTimeout)
	receipt, err := e.deps.Confirmer.WaitReceipt(waitCtx, s.TxHash)
	cancel()

	if err != nil {
		e.log.Warn(ctx, "trade confirmation not observed, scheduling refresh",
			"request_id", s.Request.ID.String(),
			"tx", s.TxHash.Hex(),
			"error", err,
		)
		e.deps.Refresher.DebouncedRefresh(e.cfg.IndeterminateRefresh)
		return domain.Failed{
			Request:       s.Request,
			From:          domain.PhaseConfirming,
			ApprovalTx:    s.ApprovalTx,
			TxHash:        s.TxHash,
			Indeterminate: true,
			Err: apperror.New(apperror.CodeConfirmationIndeterminate,
				apperror.WithContext(s.TxHash.Hex()), apperror.WithCause(err)),
		}
	}

	e.metrics.confirmLat.Record(ctx, float64(e.now().Sub(start).Milliseconds()))

	if !receipt.Success {
		// replay against the parent block to recover the revert payload
		call := e.tradeCall(s.Request, s.Plan)
		replayErr := e.deps.Simulator.Simulate(ctx, call, replayBlock(receipt.BlockNumber))
		return domain.Failed{
			Request:    s.Request,
			From:       domain.PhaseConfirming,
			ApprovalTx: s.ApprovalTx,
			TxHash:     s.TxHash,
			Err:        e.revertError(replayErr, apperror.CodeTradeReverted),
		}
	}

	return domain.Settled{
		Request:     s.Request,
		Plan:        s.Plan,
		ApprovalTx:  s.ApprovalTx,
		TxHash:      s.TxHash,
		BlockNumber: evm.Uint64(receipt.BlockNumber),
		GasUsed:     receipt.GasUsed,
	}
}

// replayBlock is the state a transaction mined in block executed against.
func replayBlock(block *big.Int) *big.Int {
	if block == nil || block.Sign() <= 0 {
		return block
	}
	return new(big.Int).Sub(block, big.NewInt(1))
}

// finish refreshes the cache after a settlement and reports the outcome.
func (e *Executor) finish(ctx context.Context, st domain.State) {
	phase := string(st.Phase())
	e.metrics.trades.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))

	switch s := st.(type) {
	case domain.Settled:
		e.deps.Refresher.ForceRefresh(context.WithoutCancel(ctx))
		e.log.Info(ctx, "trade settled",
			"request_id", s.Request.ID.String(),
			"tx", s.TxHash.Hex(),
			"block", s.BlockNumber,
		)
	case domain.Failed:
		code := apperror.GetCode(s.Err)
		e.metrics.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("phase", string(s.From)),
			attribute.String("code", string(code)),
		))
		e.log.Warn(ctx, "trade failed",
			"request_id", s.Request.ID.String(),
			"phase", string(s.From),
			"code", string(code),
			"indeterminate", s.Indeterminate,
			"error", s.Err,
		)
	}

	if e.deps.Notifier == nil {
		return
	}
	outcome, _ := domain.OutcomeOf(st, e.now())
	if err := e.deps.Notifier.Notify(context.WithoutCancel(ctx), outcome); err != nil {
		e.log.Warn(ctx, "trade notification failed", "request_id", outcome.RequestID.String(), "error", err)
	}
}

func (e *Executor) tradeCall(req domain.Request, plan domain.Plan) TradeCall {
	return TradeCall{
		Curve:     e.cfg.Curve,
		Direction: req.Direction,
		Quantity:  req.Quantity,
		Limit:     new(big.Int).Set(plan.Bound),
	}
}

func (e *Executor) revertError(err error, fallback apperror.Code) error {
	var data []byte
	text := ""
	if err != nil {
		data, _ = evm.RevertData(err)
		text = err.Error()
	}

	c := domain.ClassifyRevert(data, text, fallback)
	opts := []apperror.Option{apperror.WithMessage(c.Message), apperror.WithCategory(apperror.CategoryRevert)}
	if c.Reason != "" {
		opts = append(opts, apperror.WithContext(c.Reason))
	}
	if err != nil {
		opts = append(opts, apperror.WithCause(err))
	}
	return apperror.New(c.Code, opts...)
}

func (e *Executor) emit(st domain.State) {
	e.mu.Lock()
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()

	for _, o := range observers {
		o(st)
	}
}

// ErrTradeInFlight matches the error returned when Execute is called while a
// trade is running.
var ErrTradeInFlight = apperror.New(apperror.CodeTradeInFlight)

// IsTradeInFlight reports whether err is ErrTradeInFlight.
func IsTradeInFlight(err error) bool {
	return errors.Is(err, ErrTradeInFlight)
}
