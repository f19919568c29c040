// Package blockchain implements the blockchain bounded context: chain
// head tracking and gas prices for competition rounds.
package blockchain

import (
	"context"

	"github.com/fd1az/autopilot/business/blockchain/app"
	blockchainDI "github.com/fd1az/autopilot/business/blockchain/di"
	"github.com/fd1az/autopilot/business/blockchain/infra/ethereum"
	"github.com/fd1az/autopilot/internal/config"
	"github.com/fd1az/autopilot/internal/di"
	"github.com/fd1az/autopilot/internal/logger"
	"github.com/fd1az/autopilot/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.WebSocketURL, cfg.Ethereum.HTTPURL)
		subCfg.ChainID = cfg.Ethereum.ChainID
		subCfg.PollInterval = cfg.Ethereum.PollInterval
		subCfg.InitialBackoff = cfg.Ethereum.InitialBackoff
		subCfg.MaxBackoff = cfg.Ethereum.MaxBackoff

		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracleCfg := ethereum.DefaultGasOracleConfig(cfg.Ethereum.HTTPURL, cfg.Ethereum.MaxGasPriceGwei)
		oracle, err := ethereum.NewGasOracle(oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetBlockSubscriber(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup connects the subscriber and the gas oracle. Connection failures
// are logged, not fatal: rounds fall back to the ticker and fail on gas
// price until the node is back.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	sub := blockchainDI.GetBlockSubscriber(mono.Services())
	oracle := blockchainDI.GetGasOracle(mono.Services())

	if connector, ok := sub.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect block subscriber", "error", err)
		}
	}

	if connector, ok := oracle.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect gas oracle", "error", err)
		}
	}

	mono.AddCloser(func() error {
		if c, ok := sub.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		if c, ok := oracle.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil
	})

	log.Info(ctx, "blockchain module started")
	return nil
}
