// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name      string
	Connected bool
	Fallback  string
	LastBlock uint64
}

// StatusComponent renders connection status.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// View renders the status component as a single line.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Render("○ connecting")
	}

	parts := make([]string, 0, len(s.connections))
	for _, conn := range s.connections {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		line := "● " + conn.Name
		switch {
		case !conn.Connected:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
			line = "○ " + conn.Name + " (disconnected)"
		case conn.Fallback != "":
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
			line += " (" + conn.Fallback + ")"
		}
		if conn.LastBlock > 0 {
			line += fmt.Sprintf(" #%d", conn.LastBlock)
		}
		parts = append(parts, style.Render(line))
	}
	return strings.Join(parts, "  │  ")
}
