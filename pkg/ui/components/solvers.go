package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SolverStatus is the latest answer of one solver.
type SolverStatus struct {
	Name      string
	Responded bool
	Proposals int
	Latency   time.Duration
	Wins      int
	Rounds    int
}

// SolversComponent renders per-solver participation.
type SolversComponent struct {
	solvers map[string]*SolverStatus
}

// NewSolversComponent creates a solvers component.
func NewSolversComponent() *SolversComponent {
	return &SolversComponent{solvers: make(map[string]*SolverStatus)}
}

// Observe records one solver answer.
func (s *SolversComponent) Observe(name string, responded bool, proposals int, latency time.Duration) {
	st := s.get(name)
	st.Responded = responded
	st.Proposals = proposals
	st.Latency = latency
	st.Rounds++
}

// AddWin credits a solver with a winning solution.
func (s *SolversComponent) AddWin(name string) {
	s.get(name).Wins++
}

// Get returns a copy of a solver's status.
func (s *SolversComponent) Get(name string) (SolverStatus, bool) {
	st, ok := s.solvers[name]
	if !ok {
		return SolverStatus{}, false
	}
	return *st, true
}

func (s *SolversComponent) get(name string) *SolverStatus {
	st, ok := s.solvers[name]
	if !ok {
		st = &SolverStatus{Name: name}
		s.solvers[name] = st
	}
	return st
}

// View renders the solvers table sorted by name.
func (s *SolversComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("SOLVERS"))
	sb.WriteString("\n\n")

	if len(s.solvers) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for the first round..."))
		return sb.String()
	}

	names := make([]string, 0, len(s.solvers))
	for name := range s.solvers {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString(fmt.Sprintf("  %-16s %-8s %9s %10s %6s\n", "Solver", "Status", "Proposals", "Latency", "Wins"))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 53)))
	sb.WriteString("\n")
	for _, name := range names {
		st := s.solvers[name]
		status := okStyle.Render(fmt.Sprintf("%-8s", "ok"))
		if !st.Responded {
			status = failStyle.Render(fmt.Sprintf("%-8s", "timeout"))
		}
		sb.WriteString(fmt.Sprintf("  %-16s %s %9d %10s %3d/%-3d\n",
			name, status, st.Proposals, st.Latency.Round(time.Millisecond), st.Wins, st.Rounds))
	}
	return sb.String()
}
