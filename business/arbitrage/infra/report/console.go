// Package report delivers detection results to the terminal, Redis and the
// dashboard.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
)

var _ app.Reporter = (*Console)(nil)

// Console prints each pass as a ranked table.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: w}
}

func (c *Console) Report(_ context.Context, r domain.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] scanned %d entities in %s, %d opportunities\n",
		r.StartedAt.Format("15:04:05"), r.Entities, r.Duration.Round(time.Millisecond), len(r.Opportunities))

	if len(r.Opportunities) > 0 {
		b.WriteString(strings.Repeat("-", 86) + "\n")
		fmt.Fprintf(&b, "%-3s %-42s %9s %9s %9s  %s\n", "#", "ENTITY", "CURVE", "MARKET", "BPS", "DIRECTION")
		for i, o := range r.Opportunities {
			fmt.Fprintf(&b, "%-3d %-42s %9s %9s %9s  %s\n",
				i+1,
				o.Entity.Hex(),
				o.ImpliedCurvePrice.StringFixed(4),
				o.MarketPrice.StringFixed(4),
				o.ProfitabilityBps.StringFixed(1),
				string(o.Direction),
			)
		}
		b.WriteString(strings.Repeat("-", 86) + "\n")
	}

	if skips := r.SkipCounts(); len(skips) > 0 {
		parts := make([]string, 0, len(skips))
		for _, reason := range []domain.SkipReason{
			domain.SkipBelowThreshold,
			domain.SkipOracleInactive,
			domain.SkipOracleReadFailed,
			domain.SkipPositionReadFailed,
			domain.SkipInvalidPrice,
		} {
			if n := skips[reason]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
			}
		}
		fmt.Fprintf(&b, "skipped: %s\n", strings.Join(parts, " "))
	}

	_, err := io.WriteString(c.out, b.String())
	return err
}
