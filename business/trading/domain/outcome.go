package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
)

// Outcome is the reportable summary of a finished trade.
type Outcome struct {
	RequestID     uuid.UUID             `json:"request_id"`
	Direction     curveDomain.Direction `json:"direction"`
	Quantity      uint64                `json:"quantity"`
	Phase         Phase                 `json:"phase"`
	FailedIn      Phase                 `json:"failed_in,omitempty"`
	Code          apperror.Code         `json:"code,omitempty"`
	Message       string                `json:"message,omitempty"`
	Indeterminate bool                  `json:"indeterminate,omitempty"`
	ApprovalTx    string                `json:"approval_tx,omitempty"`
	TxHash        string                `json:"tx_hash,omitempty"`
	BlockNumber   uint64                `json:"block_number,omitempty"`
	GasUsed       uint64                `json:"gas_used,omitempty"`
	Bound         string                `json:"bound,omitempty"`
	TotalWithFee  string                `json:"total_with_fee,omitempty"`
	FinishedAt    time.Time             `json:"finished_at"`
}

// OutcomeOf summarizes a terminal state. ok is false for non-terminal states.
func OutcomeOf(s State, at time.Time) (o Outcome, ok bool) {
	switch st := s.(type) {
	case Settled:
		return Outcome{
			RequestID:    st.Request.ID,
			Direction:    st.Request.Direction,
			Quantity:     st.Request.Quantity,
			Phase:        PhaseSettled,
			ApprovalTx:   hashOrEmpty(st.ApprovalTx),
			TxHash:       hashOrEmpty(st.TxHash),
			BlockNumber:  st.BlockNumber,
			GasUsed:      st.GasUsed,
			Bound:        st.Plan.Bound.String(),
			TotalWithFee: st.Plan.Quote.TotalWithFee.String(),
			FinishedAt:   at,
		}, true
	case Failed:
		return Outcome{
			RequestID:     st.Request.ID,
			Direction:     st.Request.Direction,
			Quantity:      st.Request.Quantity,
			Phase:         PhaseFailed,
			FailedIn:      st.From,
			Code:          apperror.GetCode(st.Err),
			Message:       apperror.UserMessage(st.Err),
			Indeterminate: st.Indeterminate,
			ApprovalTx:    hashOrEmpty(st.ApprovalTx),
			TxHash:        hashOrEmpty(st.TxHash),
			FinishedAt:    at,
		}, true
	default:
		return Outcome{}, false
	}
}

func hashOrEmpty(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}
