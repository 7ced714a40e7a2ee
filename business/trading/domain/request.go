// Package domain contains the order lifecycle types for the trading context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
)

// Request is one user-initiated buy or sell. Retrying means building a new
// Request.
type Request struct {
	ID          uuid.UUID
	Direction   curveDomain.Direction
	Quantity    uint64
	SlippagePct decimal.Decimal
	RequestedAt time.Time
}

// NewRequest creates a request with a fresh ID.
func NewRequest(dir curveDomain.Direction, quantity uint64, slippagePct decimal.Decimal) Request {
	return Request{
		ID:          uuid.New(),
		Direction:   dir,
		Quantity:    quantity,
		SlippagePct: slippagePct,
		RequestedAt: time.Now(),
	}
}
