package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("LED_001", "Insufficient token balance", http.StatusUnprocessableEntity)
	assert.Equal(t, "[LED_001] Insufficient token balance", e.Error())

	wrapped := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, fmt.Errorf("pg: connection refused"))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	e := InternalError(cause)
	assert.ErrorIs(t, e, cause)
}

func TestErrInsufficientBalance_CarriesExactFigures(t *testing.T) {
	e := ErrInsufficientBalance(5000, 6000)
	assert.Equal(t, "LED_001", e.Code)
	assert.Equal(t, int64(5000), e.Details["balance"])
	assert.Equal(t, int64(6000), e.Details["requested"])
}

func TestErrDailyLimitExceeded_RemainingNeverNegative(t *testing.T) {
	e := ErrDailyLimitExceeded(15000, 16000, 100)
	assert.Equal(t, int64(0), e.Details["remaining_today"])

	e = ErrDailyLimitExceeded(15000, 4000, 12000)
	assert.Equal(t, int64(11000), e.Details["remaining_today"])
}

func TestErrAmountExceedsPending(t *testing.T) {
	e := ErrAmountExceedsPending(4000, 5000)
	assert.Equal(t, "SET_001", e.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPStatus)
	assert.Equal(t, int64(4000), e.Details["pending_settlement"])
}

func TestErrTransferNotPermitted(t *testing.T) {
	e := ErrTransferNotPermitted("citizen", "ngo")
	assert.Equal(t, http.StatusForbidden, e.HTTPStatus)
	assert.Contains(t, e.Message, "citizen")
	assert.Contains(t, e.Message, "ngo")
}

func TestValidation_HasNoDetails(t *testing.T) {
	e := Validation("amount must be positive")
	assert.Equal(t, "VAL_001", e.Code)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus)
	assert.Nil(t, e.Details)
}
