// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// WinnerRow is one winning solution inside a round.
type WinnerRow struct {
	Solver    string
	Solution  uint64
	Score     string // ETH, pre-formatted
	Reference string // ETH, pre-formatted
	Orders    int
}

// RoundRow is one finished round.
type RoundRow struct {
	Timestamp   string
	AuctionID   int64
	Block       uint64
	Orders      int
	Solutions   int
	FilteredOut int
	Responded   string // "2/3"
	Duration    string
	Winners     []WinnerRow
}

// RoundsComponent renders the most recent rounds, newest first.
type RoundsComponent struct {
	rows    []RoundRow
	maxRows int
	offset  int
}

// NewRoundsComponent creates a rounds component keeping maxRows rounds.
func NewRoundsComponent(maxRows int) *RoundsComponent {
	return &RoundsComponent{maxRows: maxRows}
}

// Add prepends a round.
func (r *RoundsComponent) Add(row RoundRow) {
	r.rows = append([]RoundRow{row}, r.rows...)
	if len(r.rows) > r.maxRows {
		r.rows = r.rows[:r.maxRows]
	}
	r.offset = 0
}

// Len returns the number of kept rounds.
func (r *RoundsComponent) Len() int { return len(r.rows) }

// Clear drops all rounds.
func (r *RoundsComponent) Clear() {
	r.rows = nil
	r.offset = 0
}

// ScrollUp moves towards newer rounds.
func (r *RoundsComponent) ScrollUp() {
	if r.offset > 0 {
		r.offset--
	}
}

// ScrollDown moves towards older rounds.
func (r *RoundsComponent) ScrollDown() {
	if r.offset < len(r.rows)-1 {
		r.offset++
	}
}

// View renders up to visible rounds starting at the scroll offset.
func (r *RoundsComponent) View(visible int) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	winStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("ROUNDS (last %d)", r.maxRows)))
	sb.WriteString("\n\n")

	if len(r.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No rounds yet..."))
		return sb.String()
	}

	end := r.offset + visible
	if visible <= 0 || end > len(r.rows) {
		end = len(r.rows)
	}
	for _, row := range r.rows[r.offset:end] {
		sb.WriteString(fmt.Sprintf("  %s  auction %-8d block #%-10d orders %-4d solutions %-3d filtered %-3d solvers %s  %s\n",
			row.Timestamp, row.AuctionID, row.Block, row.Orders, row.Solutions, row.FilteredOut, row.Responded,
			dimStyle.Render(row.Duration)))
		if len(row.Winners) == 0 {
			sb.WriteString(emptyStyle.Render("      no winners"))
			sb.WriteString("\n")
			continue
		}
		for i, w := range row.Winners {
			sb.WriteString(winStyle.Render(fmt.Sprintf("      #%d %-16s sol %-6d score %s ETH", i+1, w.Solver, w.Solution, w.Score)))
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  ref %s ETH  orders %d", w.Reference, w.Orders)))
			sb.WriteString("\n")
		}
	}
	if len(r.rows) > end {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  … %d older", len(r.rows)-end)))
	}
	return sb.String()
}
