package reporter

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/pkg/ui"
)

func emptyRound() domain.RoundResult {
	now := time.Now()
	return domain.RoundResult{
		ID:               uuid.New(),
		SolversQueried:   2,
		SolversResponded: 1,
		StartedAt:        now.Add(-time.Second),
		FinishedAt:       now,
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	require.NoError(t, r.Start(context.Background()))
	r.ReportSolverStatus("fast", true, 1, time.Millisecond)
	r.ReportSolverStatus("slow", false, 0, 2*time.Second)
	r.ReportRound(emptyRound())
	r.ReportError(errors.New("orderbook unavailable"))
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "Autopilot Started")
	assert.NotContains(t, out, "solver fast")
	assert.Contains(t, out, "solver slow: no answer after 2s")
	assert.Contains(t, out, "Solvers:        1/2 responded")
	assert.Contains(t, out, "NO WINNERS")
	assert.Contains(t, out, "error: orderbook unavailable")
	assert.Contains(t, out, "Autopilot Stopped")
}

type sink struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *sink) send(m tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
}

func (s *sink) snapshot() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

func TestTUIReporter_Forwards(t *testing.T) {
	var s sink
	r := newTUIReporter(s.send, time.Hour)

	require.NoError(t, r.Start(context.Background()))
	r.ReportBlock(7, time.Unix(0, 0))
	r.ReportGasPrice(12.5)
	r.ReportSolverStatus("baseline", true, 3, time.Millisecond)
	r.ReportRound(emptyRound())
	require.NoError(t, r.Stop())

	msgs := s.snapshot()
	require.Len(t, msgs, 5)
	assert.Equal(t, ui.StartupMsg{Step: "config", Status: "done"}, msgs[0])
	assert.Equal(t, ui.BlockMsg{Number: 7, Timestamp: time.Unix(0, 0)}, msgs[1])
	assert.Equal(t, ui.GasPriceMsg{GweiPrice: 12.5}, msgs[2])
	assert.IsType(t, ui.SolverStatusMsg{}, msgs[3])
	round, ok := msgs[4].(ui.RoundMsg)
	require.True(t, ok)
	assert.Equal(t, 1, round.Summary.SolversResponded)
}

func TestTUIReporter_ProbesReportChangesOnly(t *testing.T) {
	var (
		s     sink
		mu    sync.Mutex
		state = blockchainDomain.StateConnecting
	)
	probe := ConnectionProbe{Name: "Ethereum", State: func() blockchainDomain.ConnectionState {
		mu.Lock()
		defer mu.Unlock()
		return state
	}}
	r := newTUIReporter(s.send, 5*time.Millisecond, probe)
	require.NoError(t, r.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	state = blockchainDomain.StateConnected
	mu.Unlock()

	require.Eventually(t, func() bool {
		for _, m := range s.snapshot() {
			if c, ok := m.(ui.ConnectionStatusMsg); ok && c.Connected() {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	var statuses []ui.ConnectionStatusMsg
	for _, m := range s.snapshot() {
		if c, ok := m.(ui.ConnectionStatusMsg); ok {
			statuses = append(statuses, c)
		}
	}
	assert.Equal(t, []ui.ConnectionStatusMsg{
		{Name: "Ethereum", State: "connecting"},
		{Name: "Ethereum", State: "connected"},
	}, statuses)
}
