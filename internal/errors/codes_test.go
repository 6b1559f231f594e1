package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInvalidAmount, http.StatusBadRequest},
		{ErrCodeInvalidAddress, http.StatusBadRequest},
		{ErrCodeInvalidDeadline, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidState, http.StatusConflict},
		{ErrCodeAlreadyRegistered, http.StatusConflict},
		{ErrCodeWindowClosed, http.StatusConflict},
		{ErrCodeInsufficientBalance, http.StatusPaymentRequired},
		{ErrCodeInsufficientStake, http.StatusPaymentRequired},
		{ErrCodeUnregisteredTenant, http.StatusPreconditionFailed},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeTransferFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := NewEscrowError(tt.code, "test", nil)
		assert.Equal(t, tt.expected, err.HTTPStatus(), "code %d", tt.code)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := InternalError("failed to persist", cause)

	assert.Contains(t, err.Error(), "failed to persist")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestConstructorsCarryDetails(t *testing.T) {
	err := InsufficientBalance(500, 200)
	assert.Equal(t, ErrCodeInsufficientBalance, err.Code)
	assert.Equal(t, int64(500), err.Details["required"])
	assert.Equal(t, int64(200), err.Details["available"])

	err = InvalidState("SUBMITTED", "SETTLED")
	assert.Equal(t, "SUBMITTED", err.Details["expected"])
	assert.Equal(t, "SETTLED", err.Details["actual"])
}

func TestGetCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	assert.Equal(t, ErrCodeNotFound, GetCode(NotFound("tenant", "t-1")))
	assert.False(t, IsEscrowError(errors.New("plain")))
	assert.True(t, IsEscrowError(NotFound("tenant", "t-1")))
}

func TestCodeStringCoversTaxonomy(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeInvalidState, ErrCodeUnauthorized, ErrCodeInsufficientBalance,
		ErrCodeInsufficientStake, ErrCodeInvalidAddress, ErrCodeInvalidAmount,
		ErrCodeInvalidDeadline, ErrCodeWindowClosed, ErrCodeAlreadyRegistered,
		ErrCodeUnregisteredTenant, ErrCodeNotFound, ErrCodeUnavailable,
		ErrCodeTransferFailed,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		s := NewEscrowError(code, "", nil).CodeString()
		assert.NotEqual(t, "INTERNAL_ERROR", s, "code %d must have a distinct wire name", code)
		assert.False(t, seen[s], "duplicate wire name %s", s)
		seen[s] = true
	}
}
