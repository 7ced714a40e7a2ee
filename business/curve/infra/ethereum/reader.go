// Package ethereum reads the bonding curve over JSON-RPC.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/curve/app"
	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const (
	tracerName = "curve-reader"
	meterName  = "curve-reader"
)

var (
	_ app.CurveReader   = (*Reader)(nil)
	_ app.AddressCaller = (*Reader)(nil)
)

// optionalMethods may be missing on older curves; a revert yields a zero value.
var optionalMethods = map[string]bool{
	"tradingWindow": true,
}

// ContractCaller is the single-call surface of ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BatchCaller is the batch surface of rpc.Client.
type BatchCaller interface {
	BatchCallContext(ctx context.Context, b []rpc.BatchElem) error
}

type readerMetrics struct {
	reads          metric.Int64Counter
	readErrors     metric.Int64Counter
	batchFallbacks metric.Int64Counter
	readLatency    metric.Float64Histogram
}

// Reader implements app.CurveReader. State reads go out as one JSON-RPC
// batch and fall back to individual eth_calls when the batch fails.
type Reader struct {
	caller   ContractCaller
	batch    BatchCaller
	curveABI abi.ABI
	log      logger.LoggerInterface

	cb      *circuitbreaker.CircuitBreaker[[]byte]
	batchCB *circuitbreaker.CircuitBreaker[struct{}]

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a Reader. batch may be nil, in which case every read is
// issued individually.
func NewReader(caller ContractCaller, batch BatchCaller, log logger.LoggerInterface) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(BondingCurveABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse curve ABI: %w", err)
	}

	r := &Reader{
		caller:   caller,
		batch:    batch,
		curveABI: parsed,
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}

	onChange := func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "curve reader circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}

	cbCfg := circuitbreaker.DefaultConfig("curve-call")
	cbCfg.OnStateChange = onChange
	cbCfg.IsSuccessful = func(err error) bool { return err == nil || evm.IsRevert(err) }
	r.cb = circuitbreaker.New[[]byte](cbCfg)

	batchCfg := circuitbreaker.DefaultConfig("curve-batch")
	batchCfg.OnStateChange = onChange
	r.batchCB = circuitbreaker.New[struct{}](batchCfg)

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.reads, err = meter.Int64Counter(
		"curve_reader_reads_total",
		metric.WithDescription("Curve state reads"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"curve_reader_read_errors_total",
		metric.WithDescription("Curve reads that failed"),
	)
	if err != nil {
		return err
	}

	r.metrics.batchFallbacks, err = meter.Int64Counter(
		"curve_reader_batch_fallbacks_total",
		metric.WithDescription("Batched reads retried as individual calls"),
	)
	if err != nil {
		return err
	}

	r.metrics.readLatency, err = meter.Float64Histogram(
		"curve_reader_read_latency_ms",
		metric.WithDescription("Curve state read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// ReadState reads config, current step, trading window and, when asked, the
// step table.
func (r *Reader) ReadState(ctx context.Context, curve common.Address, withSteps bool) (*domain.StateRead, error) {
	ctx, span := r.tracer.Start(ctx, "curve.read_state",
		trace.WithAttributes(
			attribute.String("curve", curve.Hex()),
			attribute.Bool("with_steps", withSteps),
		),
	)
	defer span.End()

	start := time.Now()
	r.metrics.reads.Add(ctx, 1)

	methods := []string{"curveConfig", "getCurrentStep", "tradingWindow"}
	if withSteps {
		methods = append(methods, "getBondSteps")
	}

	raw, err := r.callMany(ctx, curve, methods)
	r.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	read := &domain.StateRead{}
	if read.Config, err = r.decodeConfig(raw[0]); err != nil {
		return nil, r.decodeErr(span, "curveConfig", err)
	}
	if read.Current, err = r.decodeCurrentStep(raw[1]); err != nil {
		return nil, r.decodeErr(span, "getCurrentStep", err)
	}
	if read.Window, err = r.decodeWindow(raw[2]); err != nil {
		return nil, r.decodeErr(span, "tradingWindow", err)
	}
	if withSteps {
		if read.Steps, err = r.decodeSteps(raw[3]); err != nil {
			return nil, r.decodeErr(span, "getBondSteps", err)
		}
	}

	span.SetAttributes(
		attribute.Int64("total_supply", int64(read.Config.TotalSupply)),
		attribute.Int("steps", len(read.Steps)),
	)
	span.SetStatus(codes.Ok, "state read")
	return read, nil
}

// EstimateBuy asks the curve what quantity tickets cost before fees.
func (r *Reader) EstimateBuy(ctx context.Context, curve common.Address, quantity uint64) (*big.Int, error) {
	return r.callBig(ctx, curve, "calculateBuyPrice", new(big.Int).SetUint64(quantity))
}

// EstimateSell asks the curve what quantity tickets return before fees.
func (r *Reader) EstimateSell(ctx context.Context, curve common.Address, quantity uint64) (*big.Int, error) {
	return r.callBig(ctx, curve, "calculateSellPrice", new(big.Int).SetUint64(quantity))
}

// PlayerTickets returns player's held quantity.
func (r *Reader) PlayerTickets(ctx context.Context, curve, player common.Address) (uint64, error) {
	v, err := r.callBig(ctx, curve, "playerTickets", player)
	if err != nil {
		return 0, err
	}
	return evm.Uint64(v), nil
}

// Participants lists every address that has held tickets.
func (r *Reader) Participants(ctx context.Context, curve common.Address) ([]common.Address, error) {
	out, err := r.callMethod(ctx, curve, "getParticipants")
	if err != nil {
		return nil, err
	}
	players, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getParticipants: unexpected output %T", out[0])
	}
	return players, nil
}

// CallAddress calls a no-argument view method by name and decodes the
// returned address.
func (r *Reader) CallAddress(ctx context.Context, target common.Address, method string) (common.Address, error) {
	data, err := r.call(ctx, target, evm.Selector(method+"()"), nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(data) < 32 {
		return common.Address{}, fmt.Errorf("%s: short return data (%d bytes)", method, len(data))
	}
	return common.BytesToAddress(data[12:32]), nil
}

func (r *Reader) callBig(ctx context.Context, to common.Address, method string, args ...any) (*big.Int, error) {
	out, err := r.callMethod(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", method, out[0])
	}
	return v, nil
}

func (r *Reader) callMethod(ctx context.Context, to common.Address, method string, args ...any) ([]any, error) {
	data, err := r.curveABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	res, err := r.call(ctx, to, data, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	out, err := r.curveABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty output", method)
	}
	return out, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	return r.cb.Execute(func() ([]byte, error) {
		return r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	})
}

// callMany runs argument-free view calls against one contract, batched when
// possible. Results keep the order of methods; an optional method that
// reverted yields nil.
func (r *Reader) callMany(ctx context.Context, to common.Address, methods []string) ([][]byte, error) {
	payloads := make([][]byte, len(methods))
	for i, m := range methods {
		data, err := r.curveABI.Pack(m)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", m, err)
		}
		payloads[i] = data
	}

	if r.batch != nil {
		out, err := r.callBatch(ctx, to, methods, payloads)
		if err == nil {
			return out, nil
		}
		r.metrics.batchFallbacks.Add(ctx, 1)
		r.log.Debug(ctx, "batched curve read failed, falling back to individual calls",
			"curve", to.Hex(),
			"error", err,
		)
	}

	out := make([][]byte, len(methods))
	for i, m := range methods {
		res, err := r.call(ctx, to, payloads[i], nil)
		if err != nil {
			if optionalMethods[m] && evm.IsRevert(err) {
				continue
			}
			return nil, apperror.New(apperror.CodeContractCallFailed,
				apperror.WithCause(err),
				apperror.WithContext(m))
		}
		out[i] = res
	}
	return out, nil
}

func (r *Reader) callBatch(ctx context.Context, to common.Address, methods []string, payloads [][]byte) ([][]byte, error) {
	results := make([]hexutil.Bytes, len(payloads))
	elems := make([]rpc.BatchElem, len(payloads))
	for i, data := range payloads {
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []any{evm.CallArg(ethereum.CallMsg{To: &to, Data: data}), evm.BlockArg(nil)},
			Result: &results[i],
		}
	}

	_, err := r.batchCB.Execute(func() (struct{}, error) {
		return struct{}{}, r.batch.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeBatchCallFailed, apperror.WithCause(err))
	}

	out := make([][]byte, len(payloads))
	for i, el := range elems {
		if el.Error != nil {
			if optionalMethods[methods[i]] && evm.IsRevert(el.Error) {
				continue
			}
			return nil, apperror.New(apperror.CodeBatchCallFailed,
				apperror.WithCause(el.Error),
				apperror.WithContext(methods[i]))
		}
		out[i] = results[i]
	}
	return out, nil
}

func (r *Reader) decodeConfig(data []byte) (domain.CurveConfig, error) {
	out, err := r.curveABI.Unpack("curveConfig", data)
	if err != nil {
		return domain.CurveConfig{}, err
	}
	if len(out) < 6 {
		return domain.CurveConfig{}, fmt.Errorf("unexpected output length: %d", len(out))
	}

	return domain.CurveConfig{
		TotalSupply:      evm.Uint64(out[0].(*big.Int)),
		Reserves:         out[1].(*big.Int),
		CurrentStepIndex: uint32(evm.Uint64(out[2].(*big.Int))),
		BuyFeeBps:        out[3].(uint16),
		SellFeeBps:       out[4].(uint16),
		TradingLocked:    out[5].(bool),
	}, nil
}

func (r *Reader) decodeCurrentStep(data []byte) (domain.CurrentStep, error) {
	out, err := r.curveABI.Unpack("getCurrentStep", data)
	if err != nil {
		return domain.CurrentStep{}, err
	}
	if len(out) < 3 {
		return domain.CurrentStep{}, fmt.Errorf("unexpected output length: %d", len(out))
	}

	return domain.CurrentStep{
		Index:   uint32(evm.Uint64(out[0].(*big.Int))),
		Price:   out[1].(*big.Int),
		RangeTo: evm.Uint64(out[2].(*big.Int)),
	}, nil
}

func (r *Reader) decodeWindow(data []byte) (domain.TradingWindow, error) {
	if len(data) == 0 {
		return domain.TradingWindow{}, nil
	}
	out, err := r.curveABI.Unpack("tradingWindow", data)
	if err != nil {
		return domain.TradingWindow{}, err
	}
	if len(out) < 2 {
		return domain.TradingWindow{}, fmt.Errorf("unexpected output length: %d", len(out))
	}

	var w domain.TradingWindow
	if opens := out[0].(uint64); opens > 0 {
		w.Opens = time.Unix(int64(opens), 0)
	}
	if closes := out[1].(uint64); closes > 0 {
		w.Closes = time.Unix(int64(closes), 0)
	}
	return w, nil
}

func (r *Reader) decodeSteps(data []byte) ([]domain.BondStep, error) {
	out, err := r.curveABI.Unpack("getBondSteps", data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty output")
	}

	raw := *abi.ConvertType(out[0], new([]bondStepABI)).(*[]bondStepABI)
	steps := make([]domain.BondStep, len(raw))
	for i, s := range raw {
		steps[i] = domain.BondStep{
			Step:    uint32(i + 1),
			RangeTo: evm.Uint64(s.RangeTo),
			Price:   new(big.Int).Set(s.Price),
		}
	}
	return steps, nil
}

func (r *Reader) decodeErr(span trace.Span, method string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "decode failed")
	return apperror.New(apperror.CodeContractCallFailed,
		apperror.WithCause(err),
		apperror.WithContext("decode "+method))
}
