package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	arbitrageDomain "github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	tradingDomain "github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/asset"
	"github.com/fd1az/curve-arbitrage/pkg/ui/components"
)

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	curve         *components.CurveComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent
	trades        *components.TradesComponent

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	quitting  bool
	busy      bool // an order is in flight
	width     int
	height    int
	startedAt time.Time
	lastScan  time.Time
	errors    []ErrorEntry // last 3
	logs      []string     // last 5
}

// New creates a new TUI model.
func New() Model {
	return Model{
		curve:         components.NewCurveComponent(),
		opportunities: components.NewOpportunitiesComponent(10),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(),
		trades:        components.NewTradesComponent(6),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		startedAt:     time.Now(),
		errors:        make([]ErrorEntry, 0, 3),
		logs:          make([]string, 0, 5),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd refreshes the relative timestamps once a second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Buy):
			m = m.trigger(curveDomain.DirectionBuy)
		case key.Matches(msg, m.keys.Sell):
			m = m.trigger(curveDomain.DirectionSell)
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
			m.trades.Clear()
			m.errors = m.errors[:0]
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case ReportMsg:
		m.applyReport(msg.Report)

	case SnapshotMsg:
		m.curve.Update(curveView(msg.Snapshot, msg.Token))

	case TradeMsg:
		m.busy = tradingDomain.IsBusy(msg.State)
		if row, ok := tradeRow(msg.State); ok {
			m.trades.Add(row)
		}

	case ConnectionStatusMsg:
		st := components.ConnectionStatus{
			Name:      msg.Name,
			Connected: msg.Connected,
			LastBlock: msg.LastBlock,
		}
		if msg.UsingHTTP {
			st.Fallback = "polling"
		}
		m.status.Update(st)

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		s := m.stats.Stats()
		s.Errors++
		m.stats.Update(s)

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

func (m Model) trigger(dir curveDomain.Direction) Model {
	switch {
	case OnTrade == nil:
		m.logs = addLog(m.logs, "warn", "read-only: no signing key configured")
	case m.busy:
		m.logs = addLog(m.logs, "warn", "a trade is already in flight")
	default:
		m.busy = true
		go OnTrade(dir)
	}
	return m
}

func (m *Model) applyReport(r arbitrageDomain.Report) {
	rows := make([]components.OpportunityRow, 0, len(r.Opportunities))
	for _, o := range r.Opportunities {
		rows = append(rows, components.OpportunityRow{
			Entity:           o.Entity.Hex(),
			CurvePrice:       o.ImpliedCurvePrice,
			MarketPrice:      o.MarketPrice,
			ProfitabilityBps: o.ProfitabilityBps,
			Direction:        string(o.Direction),
		})
	}
	m.opportunities.Set(rows)

	skipped := 0
	for _, n := range r.SkipCounts() {
		skipped += n
	}
	s := m.stats.Stats()
	s.Scans++
	s.Entities = r.Entities
	s.Opportunities = len(r.Opportunities)
	s.Skipped = skipped
	s.LastDuration = r.Duration
	m.stats.Update(s)
	m.lastScan = time.Now()
}

func curveView(s curveDomain.Snapshot, token *asset.Asset) components.CurveView {
	v := components.CurveView{
		Address:     s.Curve.Hex(),
		Supply:      s.Config.TotalSupply,
		Step:        s.Current.Index,
		StepPrice:   formatAmount(token, s.Current.Price),
		StepRangeTo: s.Current.RangeTo,
		StepLeft:    curveDomain.RemainingInStep(s.Config.TotalSupply, s.Steps),
		Reserves:    formatAmount(token, s.Config.Reserves),
		BuyFeeBps:   s.Config.BuyFeeBps,
		SellFeeBps:  s.Config.SellFeeBps,
		Locked:      s.Config.TradingLocked,
		WindowOpen:  s.Window.IsOpen(time.Now()),
		UpdatedAt:   s.UpdatedAt,
	}
	if n := len(s.Steps); n > 0 {
		v.MaxSupply = s.Steps[n-1].RangeTo
	}
	if !s.Window.Opens.IsZero() || !s.Window.Closes.IsZero() {
		v.Window = fmt.Sprintf("%s → %s",
			s.Window.Opens.Local().Format("Jan 2 15:04"), s.Window.Closes.Local().Format("Jan 2 15:04"))
	}
	return v
}

func formatAmount(token *asset.Asset, raw *big.Int) string {
	if raw == nil {
		return "-"
	}
	if token == nil {
		return raw.String()
	}
	return asset.NewAmount(token, raw).StringFixed(4)
}

func tradeRow(st tradingDomain.State) (components.TradeRow, bool) {
	row := components.TradeRow{
		Time:  time.Now().Format("15:04:05"),
		Phase: string(st.Phase()),
	}

	var req tradingDomain.Request
	switch s := st.(type) {
	case tradingDomain.Validating:
		req = s.Request
	case tradingDomain.Authorizing:
		req = s.Request
		row.Detail = "approving"
	case tradingDomain.Submitting:
		req = s.Request
	case tradingDomain.Confirming:
		req = s.Request
		row.Detail = "tx " + shortHash(s.TxHash)
	case tradingDomain.Settled:
		req = s.Request
		row.Settled = true
		row.Detail = fmt.Sprintf("tx %s block %d", shortHash(s.TxHash), s.BlockNumber)
	case tradingDomain.Failed:
		req = s.Request
		row.Failed = true
		row.Detail = apperror.UserMessage(s.Err)
		if s.Indeterminate {
			row.Detail += " (tx " + shortHash(s.TxHash) + " outcome unknown)"
		}
	default:
		return components.TradeRow{}, false
	}

	row.Direction = string(req.Direction)
	row.Quantity = req.Quantity
	return row, true
}

func shortHash(h common.Hash) string {
	s := h.Hex()
	return s[:10] + "…"
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	logs = append(logs, line)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	if !m.curve.Loaded() {
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Curve Arbitrage "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.curve.View()
	rightCol := m.opportunities.View()
	if m.width > 110 {
		left := BoxStyle.Width(m.width*2/5 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width*3/5 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(rightCol))
	}
	b.WriteString("\n\n")

	b.WriteString(m.stats.View())
	b.WriteString("\n\n")
	b.WriteString(m.trades.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString("\n")
		for _, e := range m.errors {
			ago := time.Since(e.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", e.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, line := range m.logs {
		b.WriteString(MutedValue.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Curve Arbitrage"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %s Loading curve state...\n\n", m.spinner.View()))
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startedAt).Round(time.Second))))
	sb.WriteString("\n")
	for _, line := range m.logs {
		sb.WriteString(MutedValue.Render("  " + line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if time.Since(m.lastScan) < 2*time.Second {
		parts = append(parts, StatusConnected.Render(m.spinner.View()+" scanning"))
	}
	if m.busy {
		parts = append(parts, StatusReconnecting.Render(m.spinner.View()+" trade in flight"))
	}
	if !m.lastScan.IsZero() {
		ago := time.Since(m.lastScan).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Last scan: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnTrade runs a buy or sell from the dashboard. Set by main when a signing
// key is configured; nil keeps the dashboard read-only.
var OnTrade func(dir curveDomain.Direction)

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
