package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/internal/apperror"
)

// PaymentTokenProbes are the view methods that may expose the token a curve
// settles in, in the order they are tried.
var PaymentTokenProbes = []string{"sofToken", "paymentToken", "asset", "token"}

var errZeroAddress = errors.New("probe returned the zero address")

// ProbeAttempt is the outcome of one probe call.
type ProbeAttempt struct {
	Method  string
	Address common.Address
	Err     error
}

// ProbeResult records how an address was resolved.
type ProbeResult struct {
	Address  common.Address
	Method   string // empty when Override is set
	Override bool
	Attempts []ProbeAttempt
}

// Found reports whether an address was resolved.
func (r ProbeResult) Found() bool {
	return r.Address != (common.Address{})
}

// ResolveAddress calls methods on target in order and returns the first
// non-zero address. A non-zero override skips the calls.
func ResolveAddress(ctx context.Context, caller AddressCaller, target, override common.Address, methods []string) (ProbeResult, error) {
	if override != (common.Address{}) {
		return ProbeResult{Address: override, Override: true}, nil
	}

	var res ProbeResult
	for _, m := range methods {
		addr, err := caller.CallAddress(ctx, target, m)
		if err == nil && addr == (common.Address{}) {
			err = errZeroAddress
		}
		res.Attempts = append(res.Attempts, ProbeAttempt{Method: m, Address: addr, Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}

		res.Address = addr
		res.Method = m
		return res, nil
	}

	return res, apperror.New(apperror.CodeProbeExhausted,
		apperror.WithContext(target.Hex()+": tried "+strings.Join(methods, ", ")))
}

// TokenResolver resolves the curve's payment token once and remembers it.
// Failed resolutions are retried on the next call.
type TokenResolver struct {
	caller   AddressCaller
	curve    common.Address
	override common.Address
	methods  []string

	mu     sync.Mutex
	result *ProbeResult
}

// NewTokenResolver creates a resolver probing curve with PaymentTokenProbes.
func NewTokenResolver(caller AddressCaller, curve, override common.Address) *TokenResolver {
	return &TokenResolver{
		caller:   caller,
		curve:    curve,
		override: override,
		methods:  PaymentTokenProbes,
	}
}

// Resolve returns the probe result, probing on first use.
func (r *TokenResolver) Resolve(ctx context.Context) (ProbeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.result != nil {
		return *r.result, nil
	}

	res, err := ResolveAddress(ctx, r.caller, r.curve, r.override, r.methods)
	if err != nil {
		return res, err
	}
	r.result = &res
	return res, nil
}

// PaymentToken returns the resolved token address.
func (r *TokenResolver) PaymentToken(ctx context.Context) (common.Address, error) {
	res, err := r.Resolve(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return res.Address, nil
}
