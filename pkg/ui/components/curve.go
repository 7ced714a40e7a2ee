// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// CurveView is the display form of a curve snapshot. Amounts are already
// formatted by the caller.
type CurveView struct {
	Address     string
	Supply      uint64
	MaxSupply   uint64
	Step        uint32
	StepPrice   string
	StepRangeTo uint64
	StepLeft    uint64
	Reserves    string
	BuyFeeBps   uint16
	SellFeeBps  uint16
	Locked      bool
	WindowOpen  bool
	Window      string
	UpdatedAt   time.Time
}

// CurveComponent renders the cached curve state.
type CurveComponent struct {
	view *CurveView
}

// NewCurveComponent creates an empty curve panel.
func NewCurveComponent() *CurveComponent {
	return &CurveComponent{}
}

// Update replaces the displayed state.
func (c *CurveComponent) Update(v CurveView) {
	c.view = &v
}

// Loaded reports whether a snapshot has been shown yet.
func (c *CurveComponent) Loaded() bool {
	return c.view != nil
}

// View renders the curve panel.
func (c *CurveComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("CURVE"))
	sb.WriteString("\n\n")

	if c.view == nil {
		sb.WriteString(labelStyle.Render("  Waiting for first snapshot..."))
		return sb.String()
	}
	v := c.view

	row := func(label, value string) {
		sb.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label)), value))
	}

	row("Address", valueStyle.Render(v.Address))
	row("Supply", valueStyle.Render(fmt.Sprintf("%d / %d", v.Supply, v.MaxSupply)))
	row("Step", valueStyle.Render(fmt.Sprintf("#%d  %s  (to %d, %d left)", v.Step, v.StepPrice, v.StepRangeTo, v.StepLeft)))
	row("Reserves", valueStyle.Render(v.Reserves))
	row("Fees", valueStyle.Render(fmt.Sprintf("buy %.2f%%  sell %.2f%%", float64(v.BuyFeeBps)/100, float64(v.SellFeeBps)/100)))

	trading := okStyle.Render("● open")
	switch {
	case v.Locked:
		trading = badStyle.Render("○ locked")
	case !v.WindowOpen:
		trading = badStyle.Render("○ window closed")
	}
	row("Trading", trading)
	if v.Window != "" {
		row("Window", labelStyle.Render(v.Window))
	}
	row("Updated", labelStyle.Render(fmt.Sprintf("%s ago", time.Since(v.UpdatedAt).Round(time.Second))))

	return sb.String()
}
