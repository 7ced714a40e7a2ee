package report

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/curve-arbitrage/pkg/ui"
)

var _ app.Reporter = (*TUI)(nil)

// TUI forwards each pass to the dashboard.
type TUI struct {
	send func(tea.Msg)
}

// NewTUI sends through ui.Send.
func NewTUI() *TUI {
	return &TUI{send: ui.Send}
}

func (t *TUI) Report(_ context.Context, r domain.Report) error {
	t.send(ui.ReportMsg{Report: r})
	return nil
}
