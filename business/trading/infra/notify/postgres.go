package notify

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fd1az/curve-arbitrage/business/trading/domain"
)

// Execer is satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal appends every finished trade to trade_outcomes.
type Journal struct {
	db    Execer
	curve common.Address
}

func NewJournal(db Execer, curve common.Address) *Journal {
	return &Journal{db: db, curve: curve}
}

func (j *Journal) Notify(ctx context.Context, o domain.Outcome) error {
	const query = `INSERT INTO trade_outcomes (
		request_id, curve, direction, quantity, phase, failed_in, code, message,
		indeterminate, approval_tx, tx_hash, block_number, gas_used, bound,
		total_with_fee, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::numeric, $15::numeric, $16)
	ON CONFLICT (request_id) DO NOTHING`

	_, err := j.db.Exec(ctx, query,
		o.RequestID,
		j.curve.Hex(),
		string(o.Direction),
		int64(o.Quantity),
		string(o.Phase),
		nullable(string(o.FailedIn)),
		nullable(string(o.Code)),
		nullable(o.Message),
		o.Indeterminate,
		nullable(o.ApprovalTx),
		nullable(o.TxHash),
		int64(o.BlockNumber),
		int64(o.GasUsed),
		nullable(o.Bound),
		nullable(o.TotalWithFee),
		o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record outcome %s: %w", o.RequestID, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
