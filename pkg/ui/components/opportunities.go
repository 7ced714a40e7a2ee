// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow is one ranked opportunity.
type OpportunityRow struct {
	Entity           string
	CurvePrice       decimal.Decimal
	MarketPrice      decimal.Decimal
	ProfitabilityBps decimal.Decimal
	Direction        string
}

// OpportunitiesComponent renders the ranked list of the latest pass.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{maxRows: maxRows}
}

// Set replaces the list with the ranked rows of a new pass.
func (o *OpportunitiesComponent) Set(rows []OpportunityRow) {
	o.rows = rows
	if o.offset >= len(rows) {
		o.offset = 0
	}
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = nil
	o.offset = 0
}

func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset+o.maxRows < len(o.rows) {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	buyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	sellStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	sb.WriteString("\n")

	if len(o.rows) == 0 {
		sb.WriteString(mutedStyle.Render("No opportunities above threshold..."))
		return sb.String()
	}

	end := min(o.offset+o.maxRows, len(o.rows))

	sb.WriteString("┌────┬──────────────┬──────────┬──────────┬──────────┬────────────┐\n")
	sb.WriteString("│ #  │    Entity    │  Curve   │  Market  │   Bps    │ Direction  │\n")
	sb.WriteString("├────┼──────────────┼──────────┼──────────┼──────────┼────────────┤\n")

	for i := o.offset; i < end; i++ {
		row := o.rows[i]
		style := sellStyle
		if row.Direction == "buy_curve" {
			style = buyStyle
		}
		sb.WriteString(fmt.Sprintf("│%3d │ %-12s │%9s │%9s │%9s │ %s │\n",
			i+1,
			shortAddress(row.Entity),
			row.CurvePrice.StringFixed(4),
			row.MarketPrice.StringFixed(4),
			row.ProfitabilityBps.StringFixed(1),
			style.Render(fmt.Sprintf("%-10s", row.Direction)),
		))
	}

	sb.WriteString("└────┴──────────────┴──────────┴──────────┴──────────┴────────────┘")
	if len(o.rows) > o.maxRows {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("showing %d-%d of %d", o.offset+1, end, len(o.rows))))
	}
	return sb.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
