// Package ethereum reads the external price oracle over JSON-RPC.
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
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const tracerName = "arbitrage-oracle"

var _ app.OracleReader = (*Oracle)(nil)

// ContractCaller is the read surface of ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Oracle reads price records from one oracle contract.
type Oracle struct {
	caller  ContractCaller
	address common.Address
	abi     abi.ABI
	log     logger.LoggerInterface

	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewOracle creates an Oracle for the contract at address.
func NewOracle(caller ContractCaller, address common.Address, log logger.LoggerInterface) (*Oracle, error) {
	if address == (common.Address{}) {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "oracle address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(OracleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse oracle ABI: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("oracle-call")
	cbCfg.IsSuccessful = func(err error) bool { return err == nil || evm.IsRevert(err) }
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "oracle circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Oracle{
		caller:  caller,
		address: address,
		abi:     parsed,
		log:     log,
		cb:      circuitbreaker.New[[]byte](cbCfg),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Address returns the oracle contract address.
func (o *Oracle) Address() common.Address {
	return o.address
}

// PriceRecord reads getPriceRecord(seasonID, entity).
func (o *Oracle) PriceRecord(ctx context.Context, seasonID uint64, entity common.Address) (domain.PriceRecord, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.getPriceRecord",
		trace.WithAttributes(
			attribute.Int64("season", int64(seasonID)),
			attribute.String("entity", entity.Hex()),
		),
	)
	defer span.End()

	data, err := o.abi.Pack("getPriceRecord", new(big.Int).SetUint64(seasonID), entity)
	if err != nil {
		return domain.PriceRecord{}, apperror.Internal(apperror.CodeInternalError, "pack getPriceRecord", err)
	}

	raw, err := o.cb.Execute(func() ([]byte, error) {
		return o.caller.CallContract(ctx, ethereum.CallMsg{To: &o.address, Data: data}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return domain.PriceRecord{}, apperror.External(apperror.CodeOracleReadFailed, entity.Hex(), err)
	}

	vals, err := o.abi.Unpack("getPriceRecord", raw)
	if err != nil || len(vals) == 0 {
		if err == nil {
			err = fmt.Errorf("empty result")
		}
		span.RecordError(err)
		return domain.PriceRecord{}, apperror.External(apperror.CodeOracleReadFailed, "decode "+entity.Hex(), err)
	}

	rec, ok := abi.ConvertType(vals[0], new(priceRecordABI)).(*priceRecordABI)
	if !ok {
		return domain.PriceRecord{}, apperror.Internal(apperror.CodeInternalError, "getPriceRecord",
			fmt.Errorf("unexpected type %T", vals[0]))
	}

	out, err := toPriceRecord(rec)
	if err != nil {
		span.RecordError(err)
		return domain.PriceRecord{}, err
	}

	span.SetAttributes(attribute.Bool("active", out.Active))
	span.SetStatus(codes.Ok, "ok")
	return out, nil
}

func toPriceRecord(r *priceRecordABI) (domain.PriceRecord, error) {
	bps := func(name string, v *big.Int) (uint64, error) {
		if v == nil || !v.IsUint64() || v.Uint64() > 10000 {
			return 0, apperror.New(apperror.CodeInvalidPrice,
				apperror.WithContext(fmt.Sprintf("%s=%v", name, v)))
		}
		return v.Uint64(), nil
	}

	prob, err := bps("raffleProbabilityBps", r.RaffleProbabilityBps)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	sentiment, err := bps("marketSentimentBps", r.MarketSentimentBps)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	hybrid, err := bps("hybridPriceBps", r.HybridPriceBps)
	if err != nil {
		return domain.PriceRecord{}, err
	}

	var updated time.Time
	if r.LastUpdate != nil && r.LastUpdate.Sign() > 0 && r.LastUpdate.IsInt64() {
		updated = time.Unix(r.LastUpdate.Int64(), 0).UTC()
	}

	return domain.PriceRecord{
		RaffleProbabilityBps: prob,
		MarketSentimentBps:   sentiment,
		HybridPriceBps:       hybrid,
		LastUpdate:           updated,
		Active:               r.Active,
	}, nil
}
