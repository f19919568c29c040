package domain

import "errors"

// Input errors. Solutions failing with these are discarded, never surfaced.
var (
	ErrInvalidOrderUid      = errors.New("competition: invalid order uid")
	ErrInvalidOrder         = errors.New("competition: invalid order")
	ErrInvalidFeePolicy     = errors.New("competition: invalid fee policy")
	ErrInvalidAuction       = errors.New("competition: invalid auction")
	ErrUnknownOrder         = errors.New("competition: solution references unknown order")
	ErrMissingClearingPrice = errors.New("competition: missing clearing price")
	ErrMissingNativePrice   = errors.New("competition: missing native price")
	ErrLimitPriceViolated   = errors.New("competition: execution worse than limit price")
	ErrInvalidExecution     = errors.New("competition: invalid executed amount")
	ErrPricesDoNotReconcile = errors.New("competition: clearing prices do not reconcile with execution")
	ErrUnfairSolution       = errors.New("competition: solution is worse than baseline for a token pair")
	ErrSolverQuotaExceeded  = errors.New("competition: too many solutions from solver")
)

// Scoring errors.
var (
	ErrNegativeScore       = errors.New("competition: negative score")
	ErrZeroScore           = errors.New("competition: zero score")
	ErrInvalidProbability  = errors.New("competition: success probability outside [0, 1]")
	ErrScoreAboveObjective = errors.New("competition: reported score exceeds objective value")
)
