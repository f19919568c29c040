package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",

	CodeAuctionFetchFailed: "Failed to fetch auction",
	CodeInvalidAuction:     "Auction data is invalid",

	CodeSolverRequestFailed: "Solver request failed",
	CodeInvalidSolution:     "Solution is invalid",
	CodeContractViolation:   "Contract violation in winner selection",

	CodeStoreFailed:      "Failed to persist competition data",
	CodeSettlementFailed: "Failed to hand off winning solutions",

	CodeCircuitOpen: "Circuit breaker is open",
}
