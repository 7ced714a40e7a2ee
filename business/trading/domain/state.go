package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
)

// Phase names a lifecycle state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseValidating  Phase = "validating"
	PhaseAuthorizing Phase = "authorizing"
	PhaseSubmitting  Phase = "submitting"
	PhaseConfirming  Phase = "confirming"
	PhaseSettled     Phase = "settled"
	PhaseFailed      Phase = "failed"
)

// State is one step of the order lifecycle:
//
//	Idle -> Validating -> [Authorizing] -> Submitting -> Confirming -> Settled
//
// Any non-terminal state may move to Failed.
type State interface {
	Phase() Phase
	isState()
}

// Plan is what validation settled on: the quote, the slippage bound sent with
// the trade and the token the curve settles in.
type Plan struct {
	Quote curveDomain.Quote
	Bound *big.Int
	Token common.Address
}

type (
	Idle struct{}

	Validating struct {
		Request Request
	}

	// Authorizing is entered for buys whose allowance is below Plan.Bound.
	Authorizing struct {
		Request   Request
		Plan      Plan
		Allowance *big.Int
	}

	Submitting struct {
		Request    Request
		Plan       Plan
		ApprovalTx common.Hash // zero when no approval was needed
	}

	Confirming struct {
		Request    Request
		Plan       Plan
		ApprovalTx common.Hash
		TxHash     common.Hash
	}

	Settled struct {
		Request     Request
		Plan        Plan
		ApprovalTx  common.Hash
		TxHash      common.Hash
		BlockNumber uint64
		GasUsed     uint64
	}

	// Failed carries the phase it failed in. TxHash is set once the trade was
	// submitted; Indeterminate means the outcome of that transaction is unknown.
	Failed struct {
		Request       Request
		From          Phase
		Err           error
		ApprovalTx    common.Hash
		TxHash        common.Hash
		Indeterminate bool
	}
)

func (Idle) Phase() Phase        { return PhaseIdle }
func (Validating) Phase() Phase  { return PhaseValidating }
func (Authorizing) Phase() Phase { return PhaseAuthorizing }
func (Submitting) Phase() Phase  { return PhaseSubmitting }
func (Confirming) Phase() Phase  { return PhaseConfirming }
func (Settled) Phase() Phase     { return PhaseSettled }
func (Failed) Phase() Phase      { return PhaseFailed }

func (Idle) isState()        {}
func (Validating) isState()  {}
func (Authorizing) isState() {}
func (Submitting) isState()  {}
func (Confirming) isState()  {}
func (Settled) isState()     {}
func (Failed) isState()      {}

// IsTerminal reports whether s ends the lifecycle.
func IsTerminal(s State) bool {
	switch s.(type) {
	case Settled, Failed:
		return true
	default:
		return false
	}
}

// IsBusy reports whether a trade in state s blocks a new one.
func IsBusy(s State) bool {
	switch s.(type) {
	case Idle, Settled, Failed:
		return false
	default:
		return true
	}
}
