package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeBatchCallFailed:          "Batched contract read failed",
	CodeCircuitOpen:              "Circuit breaker is open",

	CodeCacheEmpty:        "Curve state has not been loaded yet",
	CodeInvalidStepTable:  "Curve step table is invalid",
	CodeEstimateFailed:    "Could not estimate the trade amount",
	CodeCapacityExceeded:  "Purchase exceeds the remaining curve capacity",
	CodeSupplyExceeded:    "Sale exceeds the issued supply",
	CodeProbeExhausted:    "No capability probe succeeded",
	CodeInvalidSlippage:   "Slippage tolerance must be between 0 and 100 percent",
	CodePositionReadError: "Could not read the participant position",

	CodeInvalidQuantity:     "Quantity must be a positive whole number",
	CodeTradingLocked:       "Trading is locked on this curve",
	CodeTradingWindowClosed: "The trading window is closed",
	CodeInsufficientBalance: "Wallet balance does not cover the maximum cost",
	CodeInsufficientTickets: "You do not hold enough tickets to sell",
	CodeTradeInFlight:       "Another trade is already in progress",

	CodeAuthorizationFailed:   "Spending authorization failed",
	CodeAuthorizationRejected: "Spending authorization was rejected",

	CodeSimulationReverted:   "The trade would revert",
	CodeTradeReverted:        "The trade transaction reverted",
	CodeSlippageExceeded:     "Price moved beyond your slippage tolerance",
	CodeReservesInsufficient: "The curve does not hold enough reserves for this sale",
	CodeCurveNotInitialized:  "The curve is not initialized yet",
	CodeSignerRejected:       "The transaction was rejected by the signer",
	CodeSubmissionFailed:     "The transaction could not be submitted",

	CodeConfirmationIndeterminate: "Confirmation could not be observed; the transaction may still settle",

	CodeOracleReadFailed: "Oracle price read failed",
	CodeOracleInactive:   "Oracle price record is inactive",
	CodeInvalidPrice:     "Price must be positive",
}

// Message returns the default human-readable message for code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return string(code)
}
