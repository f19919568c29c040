package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const (
	maxErrors = 3
	maxLogs   = 5
	maxFeed   = 6
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// ErrorEntry is an error with the time it was reported.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

var startupOrder = []string{"config", "ethereum", "orderbook", "solvers"}

// Model is the main Bubble Tea model.
type Model struct {
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	rounds      *components.RoundsComponent
	solvers     *components.SolversComponent
	stats       *components.StatsComponent
	connections *components.StatusComponent

	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time
	startupSteps map[string]*StartupStep

	width, height int
	quitting      bool
	paused        bool
	currentBlock  uint64
	gasPrice      float64
	lastUpdate    time.Time
	errors        []ErrorEntry
	logs          []string
	feed          []string
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(ColorWarning)

	steps := map[string]*StartupStep{
		"config":    {Name: "Loading configuration", Status: "pending"},
		"ethereum":  {Name: "Connecting to Ethereum", Status: "pending"},
		"orderbook": {Name: "Reaching the orderbook", Status: "pending"},
		"solvers":   {Name: "Registering solvers", Status: "pending"},
	}

	return Model{
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		rounds:       components.NewRoundsComponent(50),
		solvers:      components.NewSolversComponent(),
		stats:        components.NewStatsComponent(),
		connections:  components.NewStatusComponent(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupTime:  now,
		startupSteps: steps,
	}
}

// Init starts the tick and spinner loops.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.leaveWelcome()
		}
		return m, tickCmd()

	case RoundMsg:
		m.applyRound(msg.Summary)

	case SolverStatusMsg:
		if !m.paused {
			m.solvers.Observe(msg.Name, msg.Responded, msg.Proposals, msg.Latency)
		}
		m.markStep("solvers", "done")

	case ConnectionStatusMsg:
		m.connections.Update(components.ConnectionStatus{
			Name:  msg.Name,
			State: msg.State,
			Since: time.Now(),
		})
		status := "connecting"
		if msg.Connected() {
			status = "connected"
		}
		m.markStep(strings.ToLower(msg.Name), status)
		m.markStep("config", "done")
		m.lastUpdate = time.Now()

	case BlockMsg:
		m.currentBlock = msg.Number
		m.feed = appendCapped(m.feed, stamp(fmt.Sprintf("Block #%d received", msg.Number)), maxFeed)
		m.lastUpdate = time.Now()

	case GasPriceMsg:
		m.gasPrice = msg.GweiPrice

	case ErrorMsg:
		if msg.Error == nil {
			break
		}
		st := m.stats.Stats()
		st.Errors++
		m.stats.Update(st)
		m.errors = appendCapped(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()}, maxErrors)
		m.logs = appendCapped(m.logs, stamp("error: "+msg.Error.Error()), maxLogs)

	case LogMsg:
		m.logs = appendCapped(m.logs, stamp(msg.Level+": "+msg.Message), maxLogs)

	case StartupMsg:
		m.markStep(msg.Step, msg.Status)
		if msg.Message != "" {
			m.logs = appendCapped(m.logs, stamp(msg.Step+": "+msg.Message), maxLogs)
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.phase == PhaseWelcome {
		return m.leaveWelcome(), tickCmd()
	}

	switch {
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Clear):
		m.rounds.Clear()
	case key.Matches(msg, m.keys.ClearErrors):
		m.errors = nil
	case key.Matches(msg, m.keys.Up):
		m.rounds.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.rounds.ScrollDown()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// leaveWelcome switches to the startup phase and triggers module startup.
// OnStartModules runs in its own goroutine; Send must not be called from
// inside Update.
func (m Model) leaveWelcome() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
	return m
}

func (m *Model) applyRound(s domain.RoundSummary) {
	st := m.stats.Stats()
	st.Rounds++
	st.Solutions += int64(s.Solutions)
	st.FilteredOut += int64(s.FilteredOut)
	st.Winners += int64(len(s.Winners))
	if len(s.Winners) == 0 {
		st.Empty++
	}
	m.stats.Update(st)

	for _, w := range s.Winners {
		m.solvers.AddWin(w.Solver)
	}

	activity := fmt.Sprintf("Auction %d: %d solutions, no winner", s.AuctionID, s.Solutions)
	if len(s.Winners) > 0 {
		activity = fmt.Sprintf("Auction %d: %s wins with %s ETH", s.AuctionID, s.Winners[0].Solver, s.Winners[0].Score)
	}
	m.feed = appendCapped(m.feed, stamp(activity), maxFeed)
	m.lastUpdate = time.Now()
	m.phase = PhaseDashboard

	if m.paused {
		return
	}
	m.rounds.Add(roundRow(s))
}

func roundRow(s domain.RoundSummary) components.RoundRow {
	row := components.RoundRow{
		Timestamp:   s.FinishedAt.Local().Format("15:04:05"),
		AuctionID:   int64(s.AuctionID),
		Block:       s.Block,
		Orders:      s.Orders,
		Solutions:   s.Solutions,
		FilteredOut: s.FilteredOut,
		Responded:   fmt.Sprintf("%d/%d", s.SolversResponded, s.SolversQueried),
		Duration:    s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
	}
	for _, w := range s.Winners {
		row.Winners = append(row.Winners, components.WinnerRow{
			Solver:    w.Solver,
			Solution:  uint64(w.SolutionID),
			Score:     w.Score.String(),
			Reference: w.Reference.String(),
			Orders:    w.Orders,
		})
	}
	return row
}

func (m *Model) markStep(name, status string) {
	if step, ok := m.startupSteps[name]; ok {
		step.Status = status
	}
}

func (m Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

func stamp(msg string) string {
	return fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcome()
	case PhaseStartup:
		if m.currentBlock == 0 && !m.startupComplete() {
			return m.renderStartup()
		}
	}
	return m.renderDashboard()
}

func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Autopilot · solver competition "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	left := m.solvers.View() + "\n\n" + m.renderFeed()
	right := m.rounds.View(m.visibleRounds())

	if m.width > 120 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(m.width/3-2).Render(left),
			BoxStyle.Width(2*m.width/3-2).Render(right),
		))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 80
		}
		b.WriteString(BoxStyle.Width(width).Render(left))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(right))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(ErrorStyle.Bold(true).Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			b.WriteString(ErrorStyle.Render("  • " + e.Message + " "))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", time.Since(e.Timestamp).Round(time.Second))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// visibleRounds fits the rounds list to the terminal height. Each round
// takes about three lines.
func (m Model) visibleRounds() int {
	if m.height <= 0 {
		return 5
	}
	n := (m.height - 20) / 3
	if n < 2 {
		n = 2
	}
	return n
}

func (m Model) renderFeed() string {
	blockStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")
	if len(m.feed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, line := range m.feed {
		if strings.Contains(line, "Block #") {
			sb.WriteString(blockStyle.Render("  " + line))
		} else {
			sb.WriteString(MutedValue.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{fmt.Sprintf("Block: #%d", m.currentBlock)}
	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Gas: %.1f gwei", m.gasPrice))
	}
	if conns := strings.TrimSpace(m.connections.View()); conns != "" && conns != "No connections" {
		parts = append(parts, strings.ReplaceAll(strings.ReplaceAll(conns, "├─ ", ""), "\n", "  "))
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", time.Since(m.lastUpdate).Round(time.Second))))
	}
	return strings.Join(parts, "  │  ")
}

func (m Model) renderWelcome() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(titleStyle.Render(`
     █████╗ ██╗   ██╗████████╗ ██████╗ ██████╗ ██╗██╗      ██████╗ ████████╗
    ██╔══██╗██║   ██║╚══██╔══╝██╔═══██╗██╔══██╗██║██║     ██╔═══██╗╚══██╔══╝
    ███████║██║   ██║   ██║   ██║   ██║██████╔╝██║██║     ██║   ██║   ██║
    ██╔══██║██║   ██║   ██║   ██║   ██║██╔═══╝ ██║██║     ██║   ██║   ██║
    ██║  ██║╚██████╔╝   ██║   ╚██████╔╝██║     ██║███████╗╚██████╔╝   ██║
    ╚═╝  ╚═╝ ╚═════╝    ╚═╝    ╚═════╝ ╚═╝     ╚═╝╚══════╝ ╚═════╝    ╚═╝
`))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("                  B A T C H   A U C T I O N   C O M P E T I T I O N"))
	sb.WriteString("\n\n\n")
	sb.WriteString(StatusConnected.Render(fmt.Sprintf("                          Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                   Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartup() string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(HeaderStyle.Render("  Autopilot"))
	sb.WriteString("\n\n  Starting up...\n\n")

	for _, name := range startupOrder {
		step := m.startupSteps[name]

		var icon, text string
		style := MutedValue
		switch step.Status {
		case "connected", "done":
			icon, text, style = "✓", "Ready", StatusConnected
		case "connecting":
			icon, text, style = m.spinner.View(), "Connecting...", StatusReconnecting
		case "failed":
			icon, text, style = "✗", "Failed", StatusDisconnected
		default:
			icon, text = "○", "Pending"
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(icon), MutedValue.Render(step.Name), style.Render(text)))
	}

	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("  Waiting for the first block or round..."))
	sb.WriteString("\n")
	return sb.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. main sets it before Run.
var OnStartModules func()

// Run starts the Bubble Tea program and blocks until it exits.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program. It is a no-op before Run.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
