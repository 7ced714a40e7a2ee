package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/business/trading/app"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

var (
	_ app.Submitter = (*Transactor)(nil)
	_ app.Simulator = (*Transactor)(nil)
	_ app.Confirmer = (*Transactor)(nil)
)

// Backend is what signing, sending and waiting need from ethclient.Client.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Preflight runs calls before they are signed and suggests fees.
type Preflight interface {
	Simulate(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	GasTipCap(ctx context.Context) (*big.Int, error)
}

// Transactor signs with a local key, sends through the backend and waits
// for receipts.
type Transactor struct {
	backend   Backend
	preflight Preflight
	key       *ecdsa.PrivateKey
	account   common.Address
	chainID   *big.Int

	erc20ABI abi.ABI
	curveABI abi.ABI

	mu      sync.Mutex
	pending map[common.Hash]*types.Transaction

	pollInterval time.Duration
	log          logger.LoggerInterface
	tracer       trace.Tracer
}

// NewTransactor creates a Transactor for the hex private key.
func NewTransactor(backend Backend, preflight Preflight, privateKeyHex string, chainID uint64, log logger.LoggerInterface) (*Transactor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("network.private_key"), apperror.WithCause(err))
	}

	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	curve, err := abi.JSON(strings.NewReader(CurveTradeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse curve trade ABI: %w", err)
	}

	return &Transactor{
		backend:      backend,
		preflight:    preflight,
		key:          key,
		account:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:      new(big.Int).SetUint64(chainID),
		erc20ABI:     erc20,
		curveABI:     curve,
		pending:      make(map[common.Hash]*types.Transaction),
		pollInterval: time.Second,
		log:          log,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// Account returns the signing address.
func (t *Transactor) Account() common.Address {
	return t.account
}

// Approve sends approve(spender, amount) on token.
func (t *Transactor) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.transact(ctx, token, t.erc20ABI, "approve", spender, amount)
}

// Submit sends buyTokens or sellTokens.
func (t *Transactor) Submit(ctx context.Context, call app.TradeCall) (common.Hash, error) {
	method, args, err := tradeArgs(call)
	if err != nil {
		return common.Hash{}, err
	}
	return t.transact(ctx, call.Curve, t.curveABI, method, args...)
}

// Simulate runs the trade as eth_call from the signing account.
func (t *Transactor) Simulate(ctx context.Context, call app.TradeCall, block *big.Int) error {
	method, args, err := tradeArgs(call)
	if err != nil {
		return err
	}
	data, err := t.curveABI.Pack(method, args...)
	if err != nil {
		return apperror.Internal(apperror.CodeInternalError, "pack "+method, err)
	}

	curve := call.Curve
	_, err = t.preflight.Simulate(ctx, ethereum.CallMsg{From: t.account, To: &curve, Data: data}, block)
	return err
}

// WaitReceipt blocks until tx is mined or ctx ends.
func (t *Transactor) WaitReceipt(ctx context.Context, hash common.Hash) (*app.Receipt, error) {
	ctx, span := t.tracer.Start(ctx, "tx.wait",
		trace.WithAttributes(attribute.String("tx", hash.Hex())),
	)
	defer span.End()

	t.mu.Lock()
	tx := t.pending[hash]
	t.mu.Unlock()

	var (
		receipt *types.Receipt
		err     error
	)
	if tx != nil {
		receipt, err = bind.WaitMined(ctx, t.backend, tx)
	} else {
		receipt, err = t.waitByHash(ctx, hash)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wait failed")
		return nil, err
	}

	t.mu.Lock()
	delete(t.pending, hash)
	t.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("block", receipt.BlockNumber.Int64()),
		attribute.Bool("success", receipt.Status == types.ReceiptStatusSuccessful),
	)
	span.SetStatus(codes.Ok, "mined")

	return &app.Receipt{
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (t *Transactor) transact(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) (common.Hash, error) {
	ctx, span := t.tracer.Start(ctx, "tx.send",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.String("method", method),
		),
	)
	defer span.End()

	opts, err := bind.NewKeyedTransactorWithChainID(t.key, t.chainID)
	if err != nil {
		return common.Hash{}, apperror.Internal(apperror.CodeInternalError, "transactor", err)
	}
	opts.Context = ctx

	if t.preflight != nil {
		if tip, err := t.preflight.GasTipCap(ctx); err == nil {
			opts.GasTipCap = tip
		} else {
			t.log.Warn(ctx, "gas tip suggestion failed, letting the node pick", "error", err)
		}
	}

	contract := bind.NewBoundContract(to, parsed, t.backend, t.backend, t.backend)
	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return common.Hash{}, err
	}

	t.mu.Lock()
	t.pending[tx.Hash()] = tx
	t.mu.Unlock()

	span.SetAttributes(
		attribute.String("tx", tx.Hash().Hex()),
		attribute.Int64("nonce", int64(tx.Nonce())),
	)
	span.SetStatus(codes.Ok, "sent")
	return tx.Hash(), nil
}

// waitByHash polls for a receipt of a transaction this process did not send.
func (t *Transactor) waitByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			t.log.Debug(ctx, "receipt poll failed", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// tradeArgs maps a trade to its curve method and arguments.
func tradeArgs(call app.TradeCall) (string, []any, error) {
	if call.Limit == nil {
		return "", nil, apperror.Validation(apperror.CodeInvalidInput, "trade limit is required")
	}
	qty := new(big.Int).SetUint64(call.Quantity)

	switch call.Direction {
	case curveDomain.DirectionBuy:
		return "buyTokens", []any{qty, call.Limit}, nil
	case curveDomain.DirectionSell:
		return "sellTokens", []any{qty, call.Limit}, nil
	default:
		return "", nil, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("direction %q", call.Direction))
	}
}
