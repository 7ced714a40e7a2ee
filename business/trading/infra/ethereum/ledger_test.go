package ethereum

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/business/trading/app"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/evm"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	owner = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	curve = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

// fakeToken answers ERC20 reads by selector.
type fakeToken struct {
	t       *testing.T
	l       *Ledger
	balance *big.Int
	allow   *big.Int
	err     error
}

func (f *fakeToken) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if *msg.To != token {
		f.t.Fatalf("call to %s, want %s", msg.To.Hex(), token.Hex())
	}

	pack := func(method string, v ...any) []byte {
		out, err := f.l.erc20ABI.Methods[method].Outputs.Pack(v...)
		if err != nil {
			f.t.Fatal(err)
		}
		return out
	}

	switch {
	case bytes.Equal(msg.Data[:4], evm.Selector("balanceOf(address)")):
		return pack("balanceOf", f.balance), nil
	case bytes.Equal(msg.Data[:4], evm.Selector("allowance(address,address)")):
		return pack("allowance", f.allow), nil
	case bytes.Equal(msg.Data[:4], evm.Selector("decimals()")):
		return pack("decimals", uint8(18)), nil
	case bytes.Equal(msg.Data[:4], evm.Selector("symbol()")):
		return pack("symbol", "SOF"), nil
	}
	f.t.Fatalf("unexpected selector %x", msg.Data[:4])
	return nil, nil
}

func newTestLedger(t *testing.T, f *fakeToken) *Ledger {
	t.Helper()
	l, err := NewLedger(f, logger.NewNop())
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	f.t = t
	f.l = l
	return l
}

func TestLedger_Reads(t *testing.T) {
	f := &fakeToken{balance: big.NewInt(5000), allow: big.NewInt(1200)}
	l := newTestLedger(t, f)
	ctx := context.Background()

	bal, err := l.Balance(ctx, token, owner)
	if err != nil || bal.Int64() != 5000 {
		t.Errorf("Balance() = %v, %v; want 5000", bal, err)
	}

	allow, err := l.Allowance(ctx, token, owner, curve)
	if err != nil || allow.Int64() != 1200 {
		t.Errorf("Allowance() = %v, %v; want 1200", allow, err)
	}

	info, err := l.Info(ctx, token)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Symbol != "SOF" || info.Decimals != 18 {
		t.Errorf("Info() = %+v", info)
	}
}

func TestLedger_CallFailure(t *testing.T) {
	f := &fakeToken{err: errors.New("connection reset")}
	l := newTestLedger(t, f)

	_, err := l.Balance(context.Background(), token, owner)
	if apperror.GetCode(err) != apperror.CodeContractCallFailed {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeContractCallFailed)
	}
}

func TestTradeArgs(t *testing.T) {
	limit := big.NewInt(1036)

	tests := []struct {
		name       string
		call       app.TradeCall
		wantMethod string
		wantErr    bool
	}{
		{name: "buy", call: app.TradeCall{Curve: curve, Direction: curveDomain.DirectionBuy, Quantity: 10, Limit: limit}, wantMethod: "buyTokens"},
		{name: "sell", call: app.TradeCall{Curve: curve, Direction: curveDomain.DirectionSell, Quantity: 10, Limit: limit}, wantMethod: "sellTokens"},
		{name: "no_limit", call: app.TradeCall{Direction: curveDomain.DirectionBuy, Quantity: 1}, wantErr: true},
		{name: "bad_direction", call: app.TradeCall{Direction: "hold", Quantity: 1, Limit: limit}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, args, err := tradeArgs(tt.call)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if method != tt.wantMethod {
				t.Errorf("method = %s, want %s", method, tt.wantMethod)
			}
			if args[0].(*big.Int).Uint64() != tt.call.Quantity || args[1].(*big.Int).Cmp(limit) != 0 {
				t.Errorf("args = %v", args)
			}
		})
	}
}
