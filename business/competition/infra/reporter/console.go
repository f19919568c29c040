// Package reporter renders competition rounds for operators.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/autopilot/business/competition/domain"
)

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Autopilot Started")
	fmt.Fprintln(r.out, "=================")
	return nil
}

// ReportRound prints a finished round with its winners.
func (r *ConsoleReporter) ReportRound(result domain.RoundResult) {
	s := result.Summary()

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ROUND %s\n", s.ID)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Auction:        %d\n", s.AuctionID)
	fmt.Fprintf(r.out, "Block:          #%d\n", s.Block)
	fmt.Fprintf(r.out, "Finished:       %s (%s)\n", s.FinishedAt.Format(time.RFC3339), s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(r.out, "Orders:         %d\n", s.Orders)
	fmt.Fprintf(r.out, "Solvers:        %d/%d responded\n", s.SolversResponded, s.SolversQueried)
	fmt.Fprintf(r.out, "Solutions:      %d ranked, %d filtered out\n", s.Solutions, s.FilteredOut)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	if len(s.Winners) == 0 {
		fmt.Fprintln(r.out, "NO WINNERS")
	} else {
		fmt.Fprintln(r.out, "WINNERS")
		for i, w := range s.Winners {
			fmt.Fprintf(r.out, "  #%d %-20s solution %-6d score %s ETH  reference %s ETH  orders %d\n",
				i+1, w.Solver, w.SolutionID, w.Score, w.Reference, w.Orders)
		}
	}
	if filtered := result.Ranking.FilteredOut(); len(filtered) > 0 {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintln(r.out, "FILTERED OUT")
		for _, f := range filtered {
			fmt.Fprintf(r.out, "  %-20s solution %-6d %s\n", f.Solver().Name, f.Solution().ID(), f.Reason())
		}
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportSolverStatus prints solvers that did not answer.
func (r *ConsoleReporter) ReportSolverStatus(name string, responded bool, proposals int, latency time.Duration) {
	if responded {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] solver %s: no answer after %s\n", time.Now().Format("15:04:05"), name, latency.Round(time.Millisecond))
}

// ReportError prints a round failure.
func (r *ConsoleReporter) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
}

// Stop prints the shutdown line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Autopilot Stopped")
	return nil
}
