package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TradeRow is one line of the trade log.
type TradeRow struct {
	Time      string
	Direction string
	Quantity  uint64
	Phase     string
	Detail    string
	Failed    bool
	Settled   bool
}

// TradesComponent keeps the most recent order transitions.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
}

func NewTradesComponent(maxRows int) *TradesComponent {
	return &TradesComponent{maxRows: maxRows}
}

// Add appends a row, dropping the oldest past maxRows.
func (t *TradesComponent) Add(row TradeRow) {
	t.rows = append(t.rows, row)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[len(t.rows)-t.maxRows:]
	}
}

func (t *TradesComponent) Clear() {
	t.rows = nil
}

func (t *TradesComponent) Len() int {
	return len(t.rows)
}

func (t *TradesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("TRADES"))
	sb.WriteString("\n")

	if len(t.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  b: buy  s: sell"))
		return sb.String()
	}

	for _, row := range t.rows {
		style := mutedStyle
		switch {
		case row.Failed:
			style = badStyle
		case row.Settled:
			style = okStyle
		}
		line := fmt.Sprintf("  [%s] %-4s %d  %-11s", row.Time, row.Direction, row.Quantity, row.Phase)
		if row.Detail != "" {
			line += " " + row.Detail
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
