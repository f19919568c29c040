// Package main is the entry point for the batch auction autopilot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/autopilot/business/blockchain"
	blockchainDI "github.com/fd1az/autopilot/business/blockchain/di"
	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition"
	competitionApp "github.com/fd1az/autopilot/business/competition/app"
	competitionDI "github.com/fd1az/autopilot/business/competition/di"
	"github.com/fd1az/autopilot/internal/apm"
	"github.com/fd1az/autopilot/internal/config"
	"github.com/fd1az/autopilot/internal/health"
	"github.com/fd1az/autopilot/internal/logger"
	"github.com/fd1az/autopilot/internal/metrics"
	"github.com/fd1az/autopilot/internal/monolith"
	"github.com/fd1az/autopilot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	once := flag.Bool("once", false, "Run a single round and exit (implies -cli)")
	history := flag.Int("history", 0, "Print the last N stored rounds and exit (implies -cli)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("autopilot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	opts := runOptions{
		configPath: *configPath,
		tuiMode:    !*cliMode && !*once && *history == 0,
		once:       *once,
		history:    *history,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !opts.tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	tuiMode    bool
	once       bool
	history    int
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.TUIMode = opts.tuiMode

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info(ctx, "starting autopilot",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Ethereum.ChainID,
	)

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	mono := monolith.New(cfg, log)
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown errors", "error", err)
		}
	}()

	modules := []monolith.Module{
		&blockchain.Module{},  // must be first, provides blocks and gas prices
		&competition.Module{}, // depends on blockchain
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version, log)
	defer healthServer.Stop(context.Background())

	startFunc := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		service := competitionDI.GetCompetitionService(mono.Services())
		registerChecks(healthServer, mono, service, cfg)
		healthServer.Start()
		return service.Start(ctx)
	}

	switch {
	case opts.history > 0:
		// only the store is needed, no chain connection
		if err := mono.StartModules(ctx, modules[1]); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		return printHistory(ctx, os.Stdout, competitionDI.GetStore(mono.Services()), opts.history)
	case opts.once:
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		_, err := competitionDI.GetCompetitionService(mono.Services()).RunOnce(ctx)
		return err
	case opts.tuiMode:
		return runTUI(ctx, startFunc)
	default:
		return runCLI(ctx, startFunc, log)
	}
}

// newLogger writes to stderr in CLI mode and to the configured file in TUI
// mode, where the terminal belongs to the UI.
func newLogger(cfg *config.Config) (*logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if !cfg.TUIMode {
		log := logger.New(os.Stderr, level, cfg.App.Name, nil)
		return log, func() { _ = log.Sync() }, nil
	}

	var w io.Writer = io.Discard
	var f *os.File
	if cfg.App.LogFile != "" {
		var err error
		f, err = os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}
	log := logger.New(w, level, cfg.App.Name, nil)
	return log, func() {
		_ = log.Sync()
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(ctx, apm.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.Provider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.Provider, "endpoint", cfg.Telemetry.OTLPEndpoint)

	providers := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if cfg.Telemetry.Provider == string(apm.OTLPGRPCProvider) && cfg.Telemetry.OTLPEndpoint != "" {
		providers = append(providers, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), true)))
	}
	meterProvider, err := metrics.NewMetricProvider(providers...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.ServePrometheusMetrics(log, metrics.WithPort(cfg.Telemetry.PrometheusPort))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Stop(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func registerChecks(s *health.Server, mono monolith.Monolith, service *competitionApp.CompetitionService, cfg *config.Config) {
	chain := blockchainDI.GetBlockchainService(mono.Services())
	s.RegisterCheck("ethereum", func(context.Context) (bool, string) {
		state := chain.ConnectionState()
		return state == blockchainDomain.StateConnected, string(state)
	})

	start := time.Now()
	s.RegisterCheck("chain_head", health.Freshness("chain head", 2*time.Minute, func() time.Time {
		if head := chain.Head(); head != nil {
			return head.Timestamp
		}
		return start
	}))

	// a round should finish at least every few intervals
	maxAge := 5 * cfg.Competition.RoundInterval
	if maxAge <= 0 {
		maxAge = 5 * cfg.Competition.SolveTimeout
	}
	s.RegisterCheck("round", health.Freshness("round", maxAge, func() time.Time {
		if last := service.LastRoundAt(); !last.IsZero() {
			return last
		}
		// grace period after startup
		return start
	}))
}

func runCLI(ctx context.Context, startFunc func() error, log *logger.Logger) error {
	if err := startFunc(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, competition running")

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}
		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if err := ui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func printHistory(ctx context.Context, w io.Writer, store competitionApp.Store, limit int) error {
	rounds, err := store.RecentRounds(ctx, limit)
	if err != nil {
		return err
	}
	if len(rounds) == 0 {
		return errors.New("no stored rounds")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tAUCTION\tBLOCK\tSOLUTIONS\tFILTERED\tWINNER\tSCORE (ETH)\tREFERENCE (ETH)")
	for _, r := range rounds {
		winner, score, reference := "-", "-", "-"
		if len(r.Winners) > 0 {
			winner = r.Winners[0].Solver
			score = r.Winners[0].Score.String()
			reference = r.Winners[0].Reference.String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.FinishedAt.Format(time.RFC3339), r.AuctionID, r.Block, r.Solutions, r.FilteredOut,
			winner, score, reference)
	}
	return tw.Flush()
}
