package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents internal error codes for escrow operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Client errors (4xx equivalent)
	ErrCodeInvalidState        ErrorCode = 1000
	ErrCodeUnauthorized        ErrorCode = 1001
	ErrCodeInsufficientBalance ErrorCode = 1002
	ErrCodeInsufficientStake   ErrorCode = 1003
	ErrCodeInvalidAddress      ErrorCode = 1004
	ErrCodeInvalidAmount       ErrorCode = 1005
	ErrCodeInvalidDeadline     ErrorCode = 1006
	ErrCodeWindowClosed        ErrorCode = 1007
	ErrCodeAlreadyRegistered   ErrorCode = 1008
	ErrCodeUnregisteredTenant  ErrorCode = 1009
	ErrCodeNotFound            ErrorCode = 1010

	// Server errors (5xx equivalent)
	ErrCodeInternal       ErrorCode = 2000
	ErrCodeUnavailable    ErrorCode = 2001
	ErrCodeTransferFailed ErrorCode = 2002
)

// EscrowError represents a structured error with code and context
type EscrowError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *EscrowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *EscrowError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps internal error codes to HTTP status codes
func (e *EscrowError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeOK:
		return http.StatusOK
	case ErrCodeInvalidAddress, ErrCodeInvalidAmount, ErrCodeInvalidDeadline:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidState, ErrCodeAlreadyRegistered, ErrCodeWindowClosed:
		return http.StatusConflict
	case ErrCodeInsufficientBalance, ErrCodeInsufficientStake:
		return http.StatusPaymentRequired
	case ErrCodeUnregisteredTenant:
		return http.StatusPreconditionFailed
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeString returns the symbolic name used in wire responses
func (e *EscrowError) CodeString() string {
	switch e.Code {
	case ErrCodeInvalidState:
		return "INVALID_STATE"
	case ErrCodeUnauthorized:
		return "UNAUTHORIZED"
	case ErrCodeInsufficientBalance:
		return "INSUFFICIENT_BALANCE"
	case ErrCodeInsufficientStake:
		return "INSUFFICIENT_STAKE"
	case ErrCodeInvalidAddress:
		return "INVALID_ADDRESS"
	case ErrCodeInvalidAmount:
		return "INVALID_AMOUNT"
	case ErrCodeInvalidDeadline:
		return "INVALID_DEADLINE"
	case ErrCodeWindowClosed:
		return "WINDOW_CLOSED"
	case ErrCodeAlreadyRegistered:
		return "ALREADY_REGISTERED"
	case ErrCodeUnregisteredTenant:
		return "UNREGISTERED_TENANT"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeUnavailable:
		return "SERVICE_UNAVAILABLE"
	case ErrCodeTransferFailed:
		return "TRANSFER_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// NewEscrowError creates a new EscrowError
func NewEscrowError(code ErrorCode, message string, cause error) *EscrowError {
	return &EscrowError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *EscrowError) WithDetail(key string, value interface{}) *EscrowError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidState(expected, actual string) *EscrowError {
	return NewEscrowError(ErrCodeInvalidState, fmt.Sprintf("invalid state: expected %s, got %s", expected, actual), nil).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

func Unauthorized(caller, role string) *EscrowError {
	return NewEscrowError(ErrCodeUnauthorized, fmt.Sprintf("caller %s does not hold role %s", caller, role), nil).
		WithDetail("caller", caller).
		WithDetail("role", role)
}

func InsufficientBalance(required, available int64) *EscrowError {
	return NewEscrowError(ErrCodeInsufficientBalance, fmt.Sprintf("insufficient balance: required %d, available %d", required, available), nil).
		WithDetail("required", required).
		WithDetail("available", available)
}

func InsufficientStake(required, provided int64) *EscrowError {
	return NewEscrowError(ErrCodeInsufficientStake, fmt.Sprintf("insufficient stake: required %d, provided %d", required, provided), nil).
		WithDetail("required", required).
		WithDetail("provided", provided)
}

func InvalidAddress(field, value string) *EscrowError {
	return NewEscrowError(ErrCodeInvalidAddress, fmt.Sprintf("invalid address for %s: %q", field, value), nil).
		WithDetail("field", field).
		WithDetail("value", value)
}

func InvalidAmount(amount int64) *EscrowError {
	return NewEscrowError(ErrCodeInvalidAmount, fmt.Sprintf("invalid amount: %d (must be positive)", amount), nil).
		WithDetail("amount", amount)
}

func InvalidDeadline(reason string) *EscrowError {
	return NewEscrowError(ErrCodeInvalidDeadline, fmt.Sprintf("invalid deadline: %s", reason), nil).
		WithDetail("reason", reason)
}

func WindowClosed(message string) *EscrowError {
	return NewEscrowError(ErrCodeWindowClosed, message, nil)
}

func AlreadyRegistered(tenantID string) *EscrowError {
	return NewEscrowError(ErrCodeAlreadyRegistered, fmt.Sprintf("tenant already registered: %s", tenantID), nil).
		WithDetail("tenant_id", tenantID)
}

func UnregisteredTenant(tenantID string) *EscrowError {
	return NewEscrowError(ErrCodeUnregisteredTenant, fmt.Sprintf("tenant not registered or inactive: %s", tenantID), nil).
		WithDetail("tenant_id", tenantID)
}

func NotFound(kind, id string) *EscrowError {
	return NewEscrowError(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

func TransferFailed(message string, cause error) *EscrowError {
	return NewEscrowError(ErrCodeTransferFailed, message, cause)
}

func InternalError(message string, cause error) *EscrowError {
	return NewEscrowError(ErrCodeInternal, message, cause)
}

func Unavailable(message string, cause error) *EscrowError {
	return NewEscrowError(ErrCodeUnavailable, message, cause)
}

// IsEscrowError checks if an error is an EscrowError
func IsEscrowError(err error) bool {
	_, ok := err.(*EscrowError)
	return ok
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if ee, ok := err.(*EscrowError); ok {
		return ee.Code
	}
	return ErrCodeInternal
}
