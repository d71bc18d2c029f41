package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeBusinessRule  ErrorType = "BUSINESS_RULE_VIOLATION"
	ErrorTypeRateLimited   ErrorType = "RATE_LIMITED"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal      ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidOrderID   ErrorCode = "INVALID_ORDER_ID"

	ErrCodeInvoiceNotFound  ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeDuplicateOrderID ErrorCode = "DUPLICATE_ORDER_ID"

	ErrCodeInvalidSignature      ErrorCode = "INVALID_SIGNATURE"
	ErrCodeInvalidNotification   ErrorCode = "INVALID_NOTIFICATION"
	ErrCodeAmountMismatch        ErrorCode = "AMOUNT_MISMATCH"
	ErrCodeInvoiceNotPayable     ErrorCode = "INVOICE_NOT_PAYABLE"
	ErrCodeUnknownGatewayStatus  ErrorCode = "UNKNOWN_GATEWAY_STATUS"
	ErrCodeAttemptBudgetExceeded ErrorCode = "PAYMENT_ATTEMPTS_EXHAUSTED"
	ErrCodeActiveLinkExists      ErrorCode = "ACTIVE_PAYMENT_LINK_EXISTS"
	ErrCodeGatewayUnavailable    ErrorCode = "PAYMENT_GATEWAY_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewBusinessRuleError reports a request that is well-formed but not allowed
// against the invoice's current state (amount mismatch, terminal status reuse).
func NewBusinessRuleError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeBusinessRule,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewRateLimitedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewExternalError reports a gateway call failure or timeout. The caller is
// expected to have already compensated any provisional state.
func NewExternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodeGatewayUnavailable,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

var (
	ErrInvoiceNotFound  = NewNotFoundError("invoice not found", ErrCodeInvoiceNotFound)
	ErrDuplicateOrderID = NewConflictError("an invoice with this order id already exists", ErrCodeDuplicateOrderID)

	ErrInvalidSignature     = NewUnauthorizedError("notification signature mismatch", ErrCodeInvalidSignature)
	ErrAmountMismatch       = NewBusinessRuleError("paid amount does not match invoice amount", ErrCodeAmountMismatch)
	ErrInvoiceNotPayable    = NewBusinessRuleError("invoice can no longer accept payment", ErrCodeInvoiceNotPayable)
	ErrUnknownGatewayStatus = NewBusinessRuleError("unrecognized gateway transaction status", ErrCodeUnknownGatewayStatus)

	ErrAttemptBudgetExhausted = NewRateLimitedError("payment link attempt budget exhausted", ErrCodeAttemptBudgetExceeded)
	ErrActiveLinkExists       = NewConflictError("an active payment link already exists", ErrCodeActiveLinkExists)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
