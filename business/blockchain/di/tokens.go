// Package di holds the DI tokens of the blockchain module.
package di

import (
	"github.com/fd1az/autopilot/business/blockchain/app"
	"github.com/fd1az/autopilot/internal/di"
)

// BlockchainService is resolved by the competition module as its block and
// gas price source.
var BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")

var (
	BlockSubscriber = di.NewToken[app.BlockSubscriber]("blockchain:blockSubscriber")
	GasOracle       = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetBlockSubscriber(c di.ServiceRegistry) app.BlockSubscriber {
	return di.GetToken(c, BlockSubscriber)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
