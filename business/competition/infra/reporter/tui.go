package reporter

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/pkg/ui"
)

// ConnectionProbe reports the state of a named dependency.
type ConnectionProbe struct {
	Name  string
	State func() blockchainDomain.ConnectionState
}

// TUIReporter implements app.Reporter and app.ChainReporter by forwarding
// updates to the Bubble Tea program.
type TUIReporter struct {
	send   func(tea.Msg)
	probes []ConnectionProbe
	every  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTUIReporter creates a TUIReporter sending to the global program.
// Probes are polled every second while the reporter runs.
func NewTUIReporter(probes ...ConnectionProbe) *TUIReporter {
	return newTUIReporter(ui.Send, time.Second, probes...)
}

func newTUIReporter(send func(tea.Msg), every time.Duration, probes ...ConnectionProbe) *TUIReporter {
	return &TUIReporter{send: send, probes: probes, every: every}
}

// Start marks configuration as loaded and begins polling probes.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "config", Status: "done"})
	if len(r.probes) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	go r.poll(ctx, done)
	return nil
}

func (r *TUIReporter) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	last := make(map[string]blockchainDomain.ConnectionState, len(r.probes))
	for {
		for _, p := range r.probes {
			state := p.State()
			if prev, ok := last[p.Name]; ok && prev == state {
				continue
			}
			last[p.Name] = state
			r.send(ui.ConnectionStatusMsg{Name: p.Name, State: string(state)})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ReportRound forwards a finished round.
func (r *TUIReporter) ReportRound(result domain.RoundResult) {
	r.send(ui.RoundMsg{Summary: result.Summary()})
}

// ReportSolverStatus forwards one solver's answer.
func (r *TUIReporter) ReportSolverStatus(name string, responded bool, proposals int, latency time.Duration) {
	r.send(ui.SolverStatusMsg{Name: name, Responded: responded, Proposals: proposals, Latency: latency})
}

// ReportError forwards a failure.
func (r *TUIReporter) ReportError(err error) {
	r.send(ui.ErrorMsg{Error: err})
}

// ReportBlock forwards a new chain head.
func (r *TUIReporter) ReportBlock(number uint64, at time.Time) {
	r.send(ui.BlockMsg{Number: number, Timestamp: at})
}

// ReportGasPrice forwards the gas price a round was scored at.
func (r *TUIReporter) ReportGasPrice(gwei float64) {
	r.send(ui.GasPriceMsg{GweiPrice: gwei})
}

// Stop ends probe polling.
func (r *TUIReporter) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
