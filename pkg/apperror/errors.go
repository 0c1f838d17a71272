package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// Is reports whether err (or anything it wraps) is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes for the ledger taxonomy.
const (
	CodeInvalidAmount           = "LED_001"
	CodeAccountNotFound         = "LED_002"
	CodeRewardNotFound          = "LED_003"
	CodeInsufficientBalance     = "LED_004"
	CodeEntryNotFound           = "LED_005"
	CodeCouponNotFound          = "CPN_001"
	CodeCouponAlreadyUsed       = "CPN_002"
	CodeCouponOwnershipMismatch = "CPN_003"
	CodeValidation              = "REQ_001"
	CodePayloadTooLarge         = "REQ_002"
	CodeInvalidToken            = "AUTH_001"
	CodeForbidden               = "AUTH_002"
	CodeRateLimitExceeded       = "RATE_001"
	CodeInternal                = "SYS_001"
)

// ---- Ledger (LED) ----

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be positive with at most two decimal places", http.StatusBadRequest)
}

func ErrAccountNotFound() *AppError {
	return New(CodeAccountNotFound, "Account not found", http.StatusNotFound)
}

func ErrRewardNotFound() *AppError {
	return New(CodeRewardNotFound, "Reward not found", http.StatusNotFound)
}

func ErrInsufficientBalance() *AppError {
	return New(CodeInsufficientBalance, "Insufficient coin balance", http.StatusUnprocessableEntity)
}

func ErrEntryNotFound() *AppError {
	return New(CodeEntryNotFound, "Ledger entry not found", http.StatusNotFound)
}

// ---- Coupons (CPN) ----

func ErrCouponNotFound() *AppError {
	return New(CodeCouponNotFound, "Coupon not found", http.StatusNotFound)
}

func ErrCouponAlreadyUsed() *AppError {
	return New(CodeCouponAlreadyUsed, "Coupon has already been used", http.StatusConflict)
}

// ErrCouponOwnershipMismatch never names the owning partner.
func ErrCouponOwnershipMismatch() *AppError {
	return New(CodeCouponOwnershipMismatch, "Coupon does not belong to this partner", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Operation not allowed for this principal", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New(CodePayloadTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}
