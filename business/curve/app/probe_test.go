package app

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/internal/apperror"
)

type probeAnswer struct {
	addr common.Address
	err  error
}

type fakeAddressCaller struct {
	answers map[string]probeAnswer
	called  []string
}

func (f *fakeAddressCaller) CallAddress(_ context.Context, _ common.Address, method string) (common.Address, error) {
	f.called = append(f.called, method)
	a, ok := f.answers[method]
	if !ok {
		return common.Address{}, errors.New("execution reverted")
	}
	return a.addr, a.err
}

func TestResolveAddress(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	override := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		name       string
		answers    map[string]probeAnswer
		override   common.Address
		wantAddr   common.Address
		wantMethod string
		wantCalls  []string
		wantErr    bool
	}{
		{
			name:       "first_probe_wins",
			answers:    map[string]probeAnswer{"sofToken": {addr: token}, "token": {addr: override}},
			wantAddr:   token,
			wantMethod: "sofToken",
			wantCalls:  []string{"sofToken"},
		},
		{
			name:       "zero_address_is_failure",
			answers:    map[string]probeAnswer{"sofToken": {}, "asset": {addr: token}},
			wantAddr:   token,
			wantMethod: "asset",
			wantCalls:  []string{"sofToken", "paymentToken", "asset"},
		},
		{
			name:      "override_skips_calls",
			answers:   map[string]probeAnswer{"sofToken": {addr: token}},
			override:  override,
			wantAddr:  override,
			wantCalls: nil,
		},
		{
			name:      "exhausted",
			answers:   map[string]probeAnswer{},
			wantCalls: []string{"sofToken", "paymentToken", "asset", "token"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeAddressCaller{answers: tt.answers}
			res, err := ResolveAddress(context.Background(), caller, curveA, tt.override, PaymentTokenProbes)

			if tt.wantErr {
				if apperror.GetCode(err) != apperror.CodeProbeExhausted {
					t.Fatalf("error = %v, want probe exhausted", err)
				}
				if len(res.Attempts) != len(PaymentTokenProbes) {
					t.Errorf("attempts = %d, want %d", len(res.Attempts), len(PaymentTokenProbes))
				}
			} else if err != nil {
				t.Fatalf("ResolveAddress() error = %v", err)
			}

			if res.Address != tt.wantAddr {
				t.Errorf("address = %s, want %s", res.Address.Hex(), tt.wantAddr.Hex())
			}
			if res.Method != tt.wantMethod {
				t.Errorf("method = %q, want %q", res.Method, tt.wantMethod)
			}
			if len(caller.called) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", caller.called, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if caller.called[i] != tt.wantCalls[i] {
					t.Errorf("call %d = %s, want %s", i, caller.called[i], tt.wantCalls[i])
				}
			}
		})
	}
}

func TestTokenResolver_CachesSuccess(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	caller := &fakeAddressCaller{answers: map[string]probeAnswer{"paymentToken": {addr: token}}}
	r := NewTokenResolver(caller, curveA, common.Address{})

	for range 3 {
		got, err := r.PaymentToken(context.Background())
		if err != nil {
			t.Fatalf("PaymentToken() error = %v", err)
		}
		if got != token {
			t.Fatalf("PaymentToken() = %s, want %s", got.Hex(), token.Hex())
		}
	}

	// sofToken then paymentToken, once
	if len(caller.called) != 2 {
		t.Errorf("calls = %v, want two probes total", caller.called)
	}
}
