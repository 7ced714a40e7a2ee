package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Category groups codes by how a caller should react to them.
type Category string

const (
	CategoryValidation    Category = "validation"    // local pre-flight check failed, nothing was sent
	CategoryAuthorization Category = "authorization" // approval failed, trade never submitted
	CategoryRevert        Category = "revert"        // remote system rejected the call
	CategoryIndeterminate Category = "indeterminate" // outcome unknown, reconcile later
	CategoryTransient     Category = "transient"     // RPC or connectivity, safe to retry
	CategoryInternal      Category = "internal"
)

// AppError implements the error interface and provides structured error handling
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	Context   string    `json:"context,omitempty"`
	TraceID   string    `json:"traceId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
	stack     []uintptr
}

// Error implements the error interface
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another AppError by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID sets the trace ID for distributed tracing
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// ToLog serializes the error for logging with stack trace
func (e *AppError) ToLog() map[string]any {
	log := map[string]any{
		"code":      e.Code,
		"message":   e.Message,
		"category":  e.Category,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}

	if e.Context != "" {
		log["context"] = e.Context
	}
	if e.TraceID != "" {
		log["traceId"] = e.TraceID
	}
	if e.cause != nil {
		log["cause"] = e.cause.Error()
	}
	if len(e.stack) > 0 {
		log["stack"] = e.formatStack()
	}

	return log
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Category:  categoryOf(code),
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithMessage sets a custom message
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// WithCategory overrides the category derived from the code.
func WithCategory(c Category) Option {
	return func(e *AppError) {
		e.Category = c
	}
}

// Validation creates a pre-flight validation error
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithCategory(CategoryValidation))
}

// Internal creates an internal error
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause))
}

// External creates an external service error
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithCategory(CategoryTransient))
}

// Wrap wraps a standard error into AppError
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return Internal(code, context, err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// GetCategory extracts the category from an error.
func GetCategory(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryInternal
}

// UserMessage returns the message meant for the person who triggered the
// action, falling back to the raw error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func categoryOf(code Code) Category {
	switch code {
	case CodeInvalidQuantity, CodeTradingLocked, CodeTradingWindowClosed,
		CodeInsufficientBalance, CodeInsufficientTickets, CodeTradeInFlight,
		CodeInvalidInput, CodeValidationError, CodeInvalidSlippage,
		CodeCapacityExceeded, CodeSupplyExceeded, CodeCacheEmpty:
		return CategoryValidation
	case CodeAuthorizationFailed, CodeAuthorizationRejected:
		return CategoryAuthorization
	case CodeSimulationReverted, CodeTradeReverted, CodeSlippageExceeded,
		CodeReservesInsufficient, CodeCurveNotInitialized, CodeSignerRejected,
		CodeSubmissionFailed:
		return CategoryRevert
	case CodeConfirmationIndeterminate:
		return CategoryIndeterminate
	case CodeEthereumConnectionFailed, CodeEthereumSubscribeFailed, CodeEthereumRPCError,
		CodeContractCallFailed, CodeBatchCallFailed, CodeCircuitOpen, CodeServiceTimeout,
		CodeRateLimitExceeded, CodeExternalServiceError, CodeOracleReadFailed,
		CodeGasEstimationFailed, CodeEstimateFailed, CodePositionReadError:
		return CategoryTransient
	default:
		return CategoryInternal
	}
}
