// Package notify delivers finished trades to the log, Redis and Postgres.
package notify

import (
	"context"
	"errors"

	"github.com/fd1az/curve-arbitrage/business/trading/app"
	"github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

// LogNotifier writes each outcome as a structured log line.
type LogNotifier struct {
	log logger.LoggerInterface
}

func NewLogNotifier(log logger.LoggerInterface) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, o domain.Outcome) error {
	kv := []any{
		"request_id", o.RequestID.String(),
		"direction", string(o.Direction),
		"quantity", o.Quantity,
	}
	if o.TxHash != "" {
		kv = append(kv, "tx", o.TxHash)
	}

	if o.Phase == domain.PhaseSettled {
		kv = append(kv, "block", o.BlockNumber, "gas_used", o.GasUsed, "total_with_fee", o.TotalWithFee)
		n.log.Info(ctx, "trade settled", kv...)
		return nil
	}

	kv = append(kv, "failed_in", string(o.FailedIn), "code", string(o.Code), "reason", o.Message)
	if o.Indeterminate {
		n.log.Warn(ctx, "trade outcome unknown", kv...)
		return nil
	}
	n.log.Error(ctx, "trade failed", kv...)
	return nil
}

// Multi fans an outcome out to several notifiers. Every notifier is called;
// the errors are joined.
type Multi []app.Notifier

func (m Multi) Notify(ctx context.Context, o domain.Outcome) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
