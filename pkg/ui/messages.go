package ui

import (
	"time"

	"github.com/fd1az/autopilot/business/competition/domain"
)

// RoundMsg is sent when a round finishes.
type RoundMsg struct {
	Summary domain.RoundSummary
}

// SolverStatusMsg is sent once per solver per round.
type SolverStatusMsg struct {
	Name      string
	Responded bool
	Proposals int
	Latency   time.Duration
}

// ConnectionStatusMsg is sent when a connection changes state. State is
// one of connecting, connected, reconnecting or disconnected.
type ConnectionStatusMsg struct {
	Name  string
	State string
}

// Connected reports whether the connection is up.
func (m ConnectionStatusMsg) Connected() bool { return m.State == "connected" }

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// ErrorMsg is sent when a round or a collaborator fails.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "ethereum", "orderbook", "solvers"
	Status  string // "connecting", "connected", "failed", "done"
	Message string
}
