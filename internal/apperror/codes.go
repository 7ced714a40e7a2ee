package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeBatchCallFailed          Code = "BATCH_CALL_FAILED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Curve state and pricing
const (
	CodeCacheEmpty        Code = "CURVE_CACHE_EMPTY"
	CodeInvalidStepTable  Code = "INVALID_STEP_TABLE"
	CodeEstimateFailed    Code = "CURVE_ESTIMATE_FAILED"
	CodeCapacityExceeded  Code = "CAPACITY_EXCEEDED"
	CodeSupplyExceeded    Code = "SUPPLY_EXCEEDED"
	CodeProbeExhausted    Code = "PROBE_EXHAUSTED"
	CodeInvalidSlippage   Code = "INVALID_SLIPPAGE"
	CodePositionReadError Code = "POSITION_READ_FAILED"
)

// Pre-flight validation
const (
	CodeInvalidQuantity     Code = "INVALID_QUANTITY"
	CodeTradingLocked       Code = "TRADING_LOCKED"
	CodeTradingWindowClosed Code = "TRADING_WINDOW_CLOSED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientTickets Code = "INSUFFICIENT_TICKETS"
	CodeTradeInFlight       Code = "TRADE_IN_FLIGHT"
)

// Authorization
const (
	CodeAuthorizationFailed   Code = "AUTHORIZATION_FAILED"
	CodeAuthorizationRejected Code = "AUTHORIZATION_REJECTED"
)

// Simulation and execution reverts
const (
	CodeSimulationReverted   Code = "SIMULATION_REVERTED"
	CodeTradeReverted        Code = "TRADE_REVERTED"
	CodeSlippageExceeded     Code = "SLIPPAGE_EXCEEDED"
	CodeReservesInsufficient Code = "RESERVES_INSUFFICIENT"
	CodeCurveNotInitialized  Code = "CURVE_NOT_INITIALIZED"
	CodeSignerRejected       Code = "SIGNER_REJECTED"
	CodeSubmissionFailed     Code = "SUBMISSION_FAILED"
)

// Confirmation
const (
	CodeConfirmationIndeterminate Code = "CONFIRMATION_INDETERMINATE"
)

// Arbitrage detection
const (
	CodeOracleReadFailed Code = "ORACLE_READ_FAILED"
	CodeOracleInactive   Code = "ORACLE_INACTIVE"
	CodeInvalidPrice     Code = "INVALID_PRICE"
)
