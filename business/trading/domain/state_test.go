package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
)

func TestStatePredicates(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
		busy     bool
	}{
		{state: Idle{}, terminal: false, busy: false},
		{state: Validating{}, terminal: false, busy: true},
		{state: Authorizing{}, terminal: false, busy: true},
		{state: Submitting{}, terminal: false, busy: true},
		{state: Confirming{}, terminal: false, busy: true},
		{state: Settled{}, terminal: true, busy: false},
		{state: Failed{}, terminal: true, busy: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state.Phase()), func(t *testing.T) {
			if got := IsTerminal(tt.state); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := IsBusy(tt.state); got != tt.busy {
				t.Errorf("IsBusy() = %v, want %v", got, tt.busy)
			}
		})
	}
}

func TestOutcomeOf(t *testing.T) {
	req := NewRequest(curveDomain.DirectionBuy, 3, decimal.NewFromInt(1))
	tx := common.HexToHash("0xabc")
	at := time.Unix(100, 0)

	settled := Settled{
		Request: req,
		Plan: Plan{
			Quote: curveDomain.NewQuote(curveDomain.DirectionBuy, 3, big.NewInt(1000), 250, curveDomain.SourceRemote),
			Bound: big.NewInt(1036),
		},
		TxHash:      tx,
		BlockNumber: 7,
	}
	o, ok := OutcomeOf(settled, at)
	if !ok || o.Phase != PhaseSettled || o.TxHash != tx.Hex() || o.TotalWithFee != "1025" || o.ApprovalTx != "" {
		t.Errorf("settled outcome = %+v", o)
	}

	failed := Failed{
		Request:       req,
		From:          PhaseConfirming,
		Err:           apperror.New(apperror.CodeConfirmationIndeterminate),
		TxHash:        tx,
		Indeterminate: true,
	}
	o, ok = OutcomeOf(failed, at)
	if !ok || o.Code != apperror.CodeConfirmationIndeterminate || !o.Indeterminate || o.TxHash == "" {
		t.Errorf("failed outcome = %+v", o)
	}

	if _, ok := OutcomeOf(Submitting{}, at); ok {
		t.Error("non-terminal state should not produce an outcome")
	}
}
