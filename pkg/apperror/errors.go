package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"` // Exact figures for the caller (remaining balance, limit, pending)
	Err        error          `json:"-"`                  // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails attaches exact figures to the error for the caller.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// ---- Ledger admission (LED) ----

func ErrInsufficientBalance(balance, requested int64) *AppError {
	return New("LED_001", "Insufficient token balance", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"balance": balance, "requested": requested})
}

func ErrDailyLimitExceeded(limit, spentToday, requested int64) *AppError {
	remaining := limit - spentToday
	if remaining < 0 {
		remaining = 0
	}
	return New("LED_002", "Daily spending limit exceeded", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{
			"daily_limit":     limit,
			"spent_today":     spentToday,
			"remaining_today": remaining,
			"requested":       requested,
		})
}

func ErrTransferNotPermitted(fromType, toType string) *AppError {
	return New("LED_003", fmt.Sprintf("Transfer from %s to %s is not permitted", fromType, toType), http.StatusForbidden)
}

func ErrAllocationExceeded(disasterID string, allocated, spent, requested int64) *AppError {
	return New("LED_004", "Disaster allocation exceeded", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{
			"disaster_id": disasterID,
			"allocated":   allocated,
			"spent":       spent,
			"requested":   requested,
		})
}

func ErrNotFound(entity string) *AppError {
	return New("LED_005", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Offline sync (SYN) ----

func ErrSignatureConflict(signature string) *AppError {
	return New("SYN_001", "Signature already recorded with a different payload", http.StatusConflict).
		WithDetails(map[string]any{"qr_signature": signature})
}

// ---- Settlement (SET) ----

func ErrAmountExceedsPending(pending, requested int64) *AppError {
	return New("SET_001", "Settlement amount exceeds pending total", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"pending_settlement": pending, "requested": requested})
}

func ErrDuplicateReference(bankReference string) *AppError {
	return New("SET_002", "Bank reference has already been used", http.StatusConflict).
		WithDetails(map[string]any{"bank_reference": bankReference})
}

// ---- Identity review (IDN) ----

func ErrInvalidClaimTransition(from, to string) *AppError {
	return New("IDN_001", fmt.Sprintf("Claim cannot move from %s to %s", from, to), http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrRoleNotPermitted(role string) *AppError {
	return New("AUTH_002", fmt.Sprintf("Role %s may not perform this operation", role), http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrConcurrencyConflict(err error) *AppError {
	return Wrap("SYS_002", "Wallet is busy, retry the request", http.StatusServiceUnavailable, err)
}

func ErrExternalServiceUnavailable(service string, err error) *AppError {
	return Wrap("SYS_003", fmt.Sprintf("%s is unavailable", service), http.StatusServiceUnavailable, err)
}

// Validation returns a VAL_001 validation error. No side effect is implied.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
