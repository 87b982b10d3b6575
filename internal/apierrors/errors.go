// Package apierrors provides the unified error taxonomy shared by every
// component of the compliance platform: a typed code, a default recovery
// strategy, and the HTTP status the REST surface maps it to.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure from the taxonomy in the platform's
// error-handling design.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeAuthentication Code = "AUTHENTICATION"
	CodeAuthorization  Code = "AUTHORIZATION"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeRateLimit      Code = "RATE_LIMIT"
	CodeNetwork        Code = "NETWORK"
	CodeTimeout        Code = "TIMEOUT"
	CodeExternalAPI    Code = "EXTERNAL_API"
	CodeDatabase       Code = "DATABASE"
	CodeConfiguration  Code = "CONFIGURATION"
	CodeProcessing     Code = "PROCESSING"
	CodeResource       Code = "RESOURCE"
	CodeSecurity       Code = "SECURITY"
	CodeUnknown        Code = "UNKNOWN"

	// Codes surfaced directly by the orchestrator/rule engine, mapped onto
	// the taxonomy above for HTTP purposes.
	CodeNoSuitableAgent  Code = "NO_SUITABLE_AGENT"
	CodeAgentUnavailable Code = "AGENT_UNAVAILABLE"
)

// Strategy is the default recovery strategy associated with a Code.
type Strategy string

const (
	StrategyFallback        Strategy = "FALLBACK"
	StrategyManual          Strategy = "MANUAL"
	StrategyIgnore          Strategy = "IGNORE"
	StrategyRetry           Strategy = "RETRY"
	StrategyCircuitBreaker  Strategy = "CIRCUIT_BREAKER"
	StrategyDegradation     Strategy = "DEGRADATION"
)

type taxonomyEntry struct {
	strategy   Strategy
	httpStatus int
	retryable  bool
}

var taxonomy = map[Code]taxonomyEntry{
	CodeValidation:       {StrategyFallback, http.StatusBadRequest, false},
	CodeAuthentication:   {StrategyManual, http.StatusUnauthorized, false},
	CodeAuthorization:    {StrategyManual, http.StatusForbidden, false},
	CodeNotFound:         {StrategyIgnore, http.StatusNotFound, false},
	CodeConflict:         {StrategyManual, http.StatusConflict, false},
	CodeRateLimit:        {StrategyRetry, http.StatusTooManyRequests, true},
	CodeNetwork:          {StrategyRetry, http.StatusServiceUnavailable, true},
	CodeTimeout:          {StrategyRetry, http.StatusGatewayTimeout, true},
	CodeExternalAPI:      {StrategyCircuitBreaker, http.StatusBadGateway, true},
	CodeDatabase:         {StrategyCircuitBreaker, http.StatusInternalServerError, true},
	CodeConfiguration:    {StrategyManual, http.StatusInternalServerError, false},
	CodeProcessing:       {StrategyDegradation, http.StatusInternalServerError, false},
	CodeResource:         {StrategyCircuitBreaker, http.StatusServiceUnavailable, true},
	CodeSecurity:         {StrategyManual, http.StatusForbidden, false},
	CodeUnknown:          {StrategyIgnore, http.StatusInternalServerError, false},
	CodeNoSuitableAgent:  {StrategyManual, http.StatusNotFound, false},
	CodeAgentUnavailable: {StrategyRetry, http.StatusServiceUnavailable, true},
}

// Strategy returns the default recovery strategy for a code, CodeUnknown's
// strategy if the code is not in the taxonomy.
func (c Code) Strategy() Strategy {
	if e, ok := taxonomy[c]; ok {
		return e.strategy
	}
	return taxonomy[CodeUnknown].strategy
}

// HTTPStatus returns the HTTP status a code maps to.
func (c Code) HTTPStatus() int {
	if e, ok := taxonomy[c]; ok {
		return e.httpStatus
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the taxonomy marks this code's default strategy
// as retryable (RATE_LIMIT, NETWORK, TIMEOUT, EXTERNAL_API, DATABASE, RESOURCE,
// AGENT_UNAVAILABLE).
func (c Code) Retryable() bool {
	if e, ok := taxonomy[c]; ok {
		return e.retryable
	}
	return false
}

// Error is a structured platform error with a taxonomy code, a message, and
// optional structured details plus a wrapped cause.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the HTTP status this error maps to.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails attaches a structured detail key/value and returns the error
// for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithField marks which input field this error concerns.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with taxonomy context.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As extracts an *Error from an error chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// HTTPStatusOf returns the HTTP status for any error: the taxonomy status if
// it is a platform Error, otherwise 500.
func HTTPStatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Convenience constructors, one per taxonomy entry used across the platform.

func Validation(message string) *Error     { return New(CodeValidation, message) }
func Authentication(message string) *Error { return New(CodeAuthentication, message) }
func Authorization(message string) *Error  { return New(CodeAuthorization, message) }
func NotFound(resource, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).WithDetails("id", id)
}
func Conflict(message string) *Error { return New(CodeConflict, message) }
func RateLimitExceeded(limit int, window string) *Error {
	return New(CodeRateLimit, "rate limit exceeded").
		WithDetails("limit", limit).
		WithDetails("window", window)
}
func Timeout(operation string) *Error {
	return New(CodeTimeout, "operation timed out").WithDetails("operation", operation)
}
func ExternalAPI(service string, err error) *Error {
	return Wrap(CodeExternalAPI, "external call failed", err).WithDetails("service", service)
}
func Database(operation string, err error) *Error {
	return Wrap(CodeDatabase, "store operation failed", err).WithDetails("operation", operation)
}
func Configuration(message string) *Error { return New(CodeConfiguration, message) }
func Processing(message string, err error) *Error {
	return Wrap(CodeProcessing, message, err)
}
func NoSuitableAgent(eventKind string) *Error {
	return New(CodeNoSuitableAgent, "no suitable agent for event").WithDetails("event_kind", eventKind)
}
func AgentUnavailable(agentType string) *Error {
	return New(CodeAgentUnavailable, "agent unavailable").WithDetails("agent_type", agentType)
}
