package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	stateUp   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	stateWait = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	stateDown = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// ConnectionStatus is the last known state of one upstream.
type ConnectionStatus struct {
	Name  string
	State string
	Since time.Time
}

// StatusComponent lists upstream connections in the order they were first
// seen.
type StatusComponent struct {
	connections []ConnectionStatus
}

func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

// Update records a state change. Since is kept when the state did not
// change.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name != status.Name {
			continue
		}
		if conn.State == status.State {
			return
		}
		s.connections[i] = status
		return
	}
	s.connections = append(s.connections, status)
}

// Get returns the status of the named connection.
func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	for _, conn := range s.connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return ConnectionStatus{}, false
}

func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	var b strings.Builder
	for _, conn := range s.connections {
		icon, style := "○", stateDown
		switch conn.State {
		case "connected":
			icon, style = "●", stateUp
		case "connecting", "reconnecting":
			icon, style = "◌", stateWait
		}
		fmt.Fprintf(&b, "├─ %s: %s", conn.Name, style.Render(icon+" "+conn.State))
		if !conn.Since.IsZero() {
			fmt.Fprintf(&b, " (%s)", time.Since(conn.Since).Round(time.Second))
		}
		b.WriteString("\n")
	}
	return b.String()
}
