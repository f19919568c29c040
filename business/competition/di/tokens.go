// Package di contains dependency injection tokens for the competition context.
package di

import (
	"github.com/fd1az/autopilot/business/competition/app"
	"github.com/fd1az/autopilot/business/competition/domain"
	"github.com/fd1az/autopilot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	CompetitionService = di.NewToken[*app.CompetitionService]("competition.CompetitionService")
	Store              = di.NewToken[app.Store]("competition.Store")
)

// Private dependency tokens - internal to competition module
var (
	AuctionSource = di.NewToken[app.AuctionSource]("competition:auctionSource")
	SolverClients = di.NewToken[[]app.SolverClient]("competition:solverClients")
	Arbitrator    = di.NewToken[domain.Arbitrator]("competition:arbitrator")
	Settler       = di.NewToken[app.Settler]("competition:settler")
	Reporter      = di.NewToken[app.Reporter]("competition:reporter")
	RoundRunner   = di.NewToken[*app.RoundRunner]("competition:roundRunner")
)

// GetCompetitionService resolves the public competition service.
func GetCompetitionService(c di.ServiceRegistry) *app.CompetitionService {
	return di.GetToken(c, CompetitionService)
}

// GetStore resolves the round store.
func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}

func GetAuctionSource(c di.ServiceRegistry) app.AuctionSource {
	return di.GetToken(c, AuctionSource)
}

func GetSolverClients(c di.ServiceRegistry) []app.SolverClient {
	return di.GetToken(c, SolverClients)
}

func GetArbitrator(c di.ServiceRegistry) domain.Arbitrator {
	return di.GetToken(c, Arbitrator)
}

func GetSettler(c di.ServiceRegistry) app.Settler {
	return di.GetToken(c, Settler)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetRoundRunner(c di.ServiceRegistry) *app.RoundRunner {
	return di.GetToken(c, RoundRunner)
}
