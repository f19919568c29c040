package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds totals across rounds.
type Stats struct {
	Rounds      int64
	Failed      int64
	Solutions   int64
	FilteredOut int64
	Winners     int64
	Empty       int64 // rounds without a winner
	Errors      int64
}

// StatsComponent renders totals.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the totals.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current totals.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	filteredRate := float64(0)
	if total := s.stats.Solutions + s.stats.FilteredOut; total > 0 {
		filteredRate = float64(s.stats.FilteredOut) / float64(total) * 100
	}

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors+s.stats.Failed))
	if s.stats.Errors+s.stats.Failed > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors+s.stats.Failed))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Rounds: %s  │  Without winner: %s  │  Winners: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rounds)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Empty)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Winners)),
		) +
		fmt.Sprintf("Solutions: %s  │  Filtered: %s (%.1f%%)  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Solutions)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.FilteredOut)),
			filteredRate,
			errorsDisplay,
		)
}
