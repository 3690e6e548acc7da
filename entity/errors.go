package entity

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier carried by every error reported through a result callback.
type ErrorCode string

const (
	CodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	CodeModeMismatch       ErrorCode = "MODE_MISMATCH"
	CodeInProgress         ErrorCode = "OPERATION_IN_PROGRESS"
	CodeNotInitialized     ErrorCode = "NOT_INITIALIZED"
	CodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	CodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	CodeNetwork            ErrorCode = "NETWORK_ERROR"
	CodeGateway            ErrorCode = "GATEWAY_ERROR"
	CodeInvalidPaymentData ErrorCode = "INVALID_PAYMENT_DATA"
	CodeMissingField       ErrorCode = "MISSING_FIELD"
	CodePaymentFailed      ErrorCode = "PAYMENT_FAILED"
	CodePaymentPending     ErrorCode = "PAYMENT_PENDING"
	CodeUnknownState       ErrorCode = "UNKNOWN_STATE"
	CodeTokenNotAvailable  ErrorCode = "TOKEN_NOT_AVAILABLE"
	CodeWallet             ErrorCode = "WALLET_ERROR"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// GooglePayError is the structured error delivered with a Failure result.
type GooglePayError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func NewError(code ErrorCode, message string, err error) *GooglePayError {
	return &GooglePayError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *GooglePayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GooglePayError) Unwrap() error {
	return e.Err
}

// Is matches any GooglePayError with the same code, so sentinels work with errors.Is.
func (e *GooglePayError) Is(target error) bool {
	var other *GooglePayError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrModeMismatch   = NewError(CodeModeMismatch, "operation not available in this mode", nil)
	ErrInProgress     = NewError(CodeInProgress, "another payment operation is in progress", nil)
	ErrNotInitialized = NewError(CodeNotInitialized, "session not initialized", nil)
)

// MissingFieldError names the wallet token field that was absent or blank.
func MissingFieldError(field string) *GooglePayError {
	return NewError(CodeMissingField, fmt.Sprintf("missing required field: %s", field), nil)
}

// GatewayError is returned by the gateway client for any non-2xx response.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error: status %d; code %s; %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error: status %d; %s", e.StatusCode, e.Message)
}

// ConfigError reports a violated configuration invariant.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Is lets a ConfigError match the CONFIGURATION_ERROR code, like any GooglePayError.
func (e *ConfigError) Is(target error) bool {
	var googlePayError *GooglePayError
	if errors.As(target, &googlePayError) {
		return googlePayError.Code == CodeConfiguration
	}
	return false
}
