// Package competition implements the competition bounded context: auction
// rounds in which solvers compete to settle a batch of orders.
package competition

import (
	"context"
	"fmt"

	blockchainApp "github.com/fd1az/autopilot/business/blockchain/app"
	blockchainDI "github.com/fd1az/autopilot/business/blockchain/di"
	blockchainDomain "github.com/fd1az/autopilot/business/blockchain/domain"
	"github.com/fd1az/autopilot/business/competition/app"
	competitionDI "github.com/fd1az/autopilot/business/competition/di"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/business/competition/infra/memory"
	"github.com/fd1az/autopilot/business/competition/infra/orderbook"
	"github.com/fd1az/autopilot/business/competition/infra/postgres"
	"github.com/fd1az/autopilot/business/competition/infra/reporter"
	"github.com/fd1az/autopilot/business/competition/infra/settlement"
	"github.com/fd1az/autopilot/business/competition/infra/solver"
	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/config"
	"github.com/fd1az/autopilot/internal/di"
	"github.com/fd1az/autopilot/internal/logger"
	"github.com/fd1az/autopilot/internal/monolith"
)

// memoryRounds is how many rounds the in-memory store keeps.
const memoryRounds = 512

// Module implements the competition bounded context.
type Module struct {
	// pool is set in Startup when persistence is enabled, before the store
	// is first resolved.
	pool *postgres.Pool
}

// RegisterServices registers all competition services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, competitionDI.AuctionSource, func(sr di.ServiceRegistry) app.AuctionSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := orderbook.NewClient(orderbook.Config{
			BaseURL:           cfg.Orderbook.URL,
			Timeout:           cfg.Orderbook.Timeout,
			RequestsPerSecond: cfg.Orderbook.RequestsPerSecond,
			Burst:             cfg.Orderbook.Burst,
			WrappedNative:     asset.WrappedNative(cfg.Ethereum.ChainID),
		}, log)
		if err != nil {
			panic("failed to create orderbook client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, competitionDI.SolverClients, func(sr di.ServiceRegistry) []app.SolverClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clients := make([]app.SolverClient, 0, len(cfg.Solvers))
		for _, s := range cfg.Solvers {
			client, err := solver.NewClient(solver.Config{
				Solver:  domain.Solver{Name: s.Name, Address: s.AddressHex()},
				BaseURL: s.URL,
			}, log)
			if err != nil {
				panic(fmt.Sprintf("failed to create solver client %s: %v", s.Name, err))
			}
			clients = append(clients, client)
		}
		return clients
	})

	di.RegisterToken(c, competitionDI.Arbitrator, func(sr di.ServiceRegistry) domain.Arbitrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return domain.NewMaxScoreArbitrator(domain.ArbitratorConfig{
			MaxWinners:            cfg.Competition.MaxWinners,
			MaxSolutionsPerSolver: cfg.Competition.MaxSolutionsPerSolver,
			OnDiscard: func(p domain.Unranked, reason error) {
				log.Debug(context.Background(), "solution filtered out",
					"solver", p.Solver().Name,
					"solution", p.Solution().ID(),
					"reason", reason,
				)
			},
		})
	})

	di.RegisterToken(c, competitionDI.Store, func(sr di.ServiceRegistry) app.Store {
		if m.pool != nil {
			return postgres.NewRoundStore(m.pool)
		}
		return memory.NewStore(memoryRounds)
	})

	di.RegisterToken(c, competitionDI.Settler, func(sr di.ServiceRegistry) app.Settler {
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("tokenRegistry").(*asset.Registry)

		s, err := settlement.NewLogSettler(log, registry)
		if err != nil {
			panic("failed to create settler: " + err.Error())
		}
		return s
	})

	di.RegisterToken(c, competitionDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.TUIMode {
			return reporter.NewConsoleReporter()
		}
		chain := blockchainDI.GetBlockchainService(sr)
		return reporter.NewTUIReporter(reporter.ConnectionProbe{
			Name:  "Ethereum",
			State: func() blockchainDomain.ConnectionState { return chain.ConnectionState() },
		})
	})

	di.RegisterToken(c, competitionDI.RoundRunner, func(sr di.ServiceRegistry) *app.RoundRunner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		scorer, err := newScorer(cfg)
		if err != nil {
			panic("invalid scoring configuration: " + err.Error())
		}

		runner, err := app.NewRoundRunner(
			competitionDI.GetAuctionSource(sr),
			competitionDI.GetSolverClients(sr),
			blockchainDI.GetBlockchainService(sr),
			competitionDI.GetArbitrator(sr),
			competitionDI.GetStore(sr),
			competitionDI.GetSettler(sr),
			competitionDI.GetReporter(sr),
			app.RoundConfig{SolveTimeout: cfg.Competition.SolveTimeout, Scorer: scorer},
			log,
		)
		if err != nil {
			panic("failed to create round runner: " + err.Error())
		}
		return runner
	})

	di.RegisterToken(c, competitionDI.CompetitionService, func(sr di.ServiceRegistry) *app.CompetitionService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var blocks app.BlockSource = blockchainDI.GetBlockchainService(sr)
		return app.NewCompetitionService(
			competitionDI.GetRoundRunner(sr),
			blocks,
			competitionDI.GetReporter(sr),
			cfg.Competition.RoundInterval,
			log,
		)
	})

	return nil
}

func newScorer(cfg *config.Config) (domain.Scorer, error) {
	capWei, err := cfg.Competition.ScoreCapWei()
	if err != nil {
		return domain.Scorer{}, err
	}
	scoreCap, err := asset.NewEther(capWei)
	if err != nil {
		return domain.Scorer{}, err
	}
	return domain.Scorer{
		Model: domain.RevertModel{
			Beta:   cfg.Risk.Beta,
			Alpha1: cfg.Risk.Alpha1,
			Alpha2: cfg.Risk.Alpha2,
		},
		ScoreCap:   scoreCap,
		DefaultGas: cfg.Risk.DefaultGas,
	}, nil
}

// Startup connects the database when enabled and registers shutdown hooks.
// The round loop itself is started by the caller through the
// CompetitionService.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreFailed, "connect database")
		}
		mono.AddCloser(pool.Close)

		if cfg.Database.MigrateOnStart {
			applied, err := pool.RunMigrations(ctx)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeStoreFailed, "migrate database")
			}
			log.Info(ctx, "database migrated", "migrations", applied)
		}
		m.pool = pool
	}

	service := competitionDI.GetCompetitionService(mono.Services())
	mono.AddCloser(service.Stop)

	log.Info(ctx, "competition module started",
		"solvers", len(cfg.Solvers),
		"max_winners", cfg.Competition.MaxWinners,
		"solve_timeout", cfg.Competition.SolveTimeout,
		"persistence", cfg.Database.Enabled,
	)
	return nil
}

var _ app.BlockSource = (*blockchainApp.BlockchainService)(nil)
