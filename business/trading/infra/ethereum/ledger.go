package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/trading/app"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const tracerName = "trading-ethereum"

var _ app.Ledger = (*Ledger)(nil)

// ContractCaller is the read surface of ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenInfo describes an ERC20 token.
type TokenInfo struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Ledger reads ERC20 balances and allowances.
type Ledger struct {
	caller   ContractCaller
	erc20ABI abi.ABI
	log      logger.LoggerInterface

	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewLedger creates a Ledger.
func NewLedger(caller ContractCaller, log logger.LoggerInterface) (*Ledger, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("erc20-call")
	cbCfg.IsSuccessful = func(err error) bool { return err == nil || evm.IsRevert(err) }
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "ledger circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Ledger{
		caller:   caller,
		erc20ABI: parsed,
		log:      log,
		cb:       circuitbreaker.New[[]byte](cbCfg),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Balance returns owner's balance of token.
func (l *Ledger) Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := l.call(ctx, token, "balanceOf", &out, owner); err != nil {
		return nil, err
	}
	return out, nil
}

// Allowance returns how much spender may move on owner's behalf.
func (l *Ledger) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	if err := l.call(ctx, token, "allowance", &out, owner, spender); err != nil {
		return nil, err
	}
	return out, nil
}

// Info reads the token's symbol and decimals.
func (l *Ledger) Info(ctx context.Context, token common.Address) (TokenInfo, error) {
	info := TokenInfo{Address: token}
	if err := l.call(ctx, token, "decimals", &info.Decimals); err != nil {
		return TokenInfo{}, err
	}
	if err := l.call(ctx, token, "symbol", &info.Symbol); err != nil {
		return TokenInfo{}, err
	}
	return info, nil
}

func (l *Ledger) call(ctx context.Context, token common.Address, method string, out any, args ...any) error {
	ctx, span := l.tracer.Start(ctx, "erc20."+method,
		trace.WithAttributes(attribute.String("token", token.Hex())),
	)
	defer span.End()

	data, err := l.erc20ABI.Pack(method, args...)
	if err != nil {
		return apperror.Internal(apperror.CodeInternalError, "pack "+method, err)
	}

	raw, err := l.cb.Execute(func() ([]byte, error) {
		return l.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return apperror.External(apperror.CodeContractCallFailed, method, err)
	}

	vals, err := l.erc20ABI.Unpack(method, raw)
	if err != nil || len(vals) == 0 {
		if err == nil {
			err = fmt.Errorf("empty result")
		}
		span.RecordError(err)
		return apperror.External(apperror.CodeContractCallFailed, "decode "+method, err)
	}

	switch dst := out.(type) {
	case **big.Int:
		v, ok := vals[0].(*big.Int)
		if !ok {
			return apperror.Internal(apperror.CodeInternalError, method, fmt.Errorf("unexpected type %T", vals[0]))
		}
		*dst = v
	case *uint8:
		v, ok := vals[0].(uint8)
		if !ok {
			return apperror.Internal(apperror.CodeInternalError, method, fmt.Errorf("unexpected type %T", vals[0]))
		}
		*dst = v
	case *string:
		v, ok := vals[0].(string)
		if !ok {
			return apperror.Internal(apperror.CodeInternalError, method, fmt.Errorf("unexpected type %T", vals[0]))
		}
		*dst = v
	default:
		return apperror.Internal(apperror.CodeInternalError, method, fmt.Errorf("unsupported output %T", out))
	}

	span.SetStatus(codes.Ok, "ok")
	return nil
}
