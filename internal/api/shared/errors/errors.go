package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-editions/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest          ErrorCode = "bad_request"
	ErrCodeNotFound            ErrorCode = "not_found"
	ErrCodeValidationFailed    ErrorCode = "validation_failed"
	ErrCodeUnauthorized        ErrorCode = "unauthorized"
	ErrCodeForbidden           ErrorCode = "forbidden"
	ErrCodeConflict            ErrorCode = "conflict"
	ErrCodeSaleNotStarted      ErrorCode = "sale_not_started"
	ErrCodeSaleEnded           ErrorCode = "sale_ended"
	ErrCodeSoldOut             ErrorCode = "sold_out"
	ErrCodeInvalidSignature    ErrorCode = "invalid_signature"
	ErrCodeTicketAlreadyUsed   ErrorCode = "ticket_already_used"
	ErrCodeInsufficientPayment ErrorCode = "insufficient_payment"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	// Status is the HTTP status the error is served with
	Status int `json:"-"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// StatusCode returns the HTTP status of the error, 500 when unset
func (e *APIError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func newError(status int, code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
		Status:  status,
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newError(http.StatusBadRequest, ErrCodeBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newError(http.StatusNotFound, ErrCodeNotFound, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newError(http.StatusUnprocessableEntity, ErrCodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(http.StatusUnauthorized, ErrCodeUnauthorized, message, details)
}

func NewForbiddenError(message string, details ...string) *APIError {
	return newError(http.StatusForbidden, ErrCodeForbidden, message, details)
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(http.StatusInternalServerError, ErrCodeInternalError, message, details)
}

func NewDatabaseError(message string, details ...string) *APIError {
	return newError(http.StatusInternalServerError, ErrCodeDatabaseError, message, details)
}

// domainErrors maps every domain sentinel to its REST representation
var domainErrors = []struct {
	err    error
	status int
	code   ErrorCode
}{
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrUnauthorized, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrInvalidConfig, http.StatusUnprocessableEntity, ErrCodeValidationFailed},
	{domain.ErrInvalidIdentity, http.StatusUnprocessableEntity, ErrCodeValidationFailed},
	{domain.ErrDuplicateEdition, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateArtist, http.StatusConflict, ErrCodeConflict},
	{domain.ErrNotStarted, http.StatusConflict, ErrCodeSaleNotStarted},
	{domain.ErrEnded, http.StatusConflict, ErrCodeSaleEnded},
	{domain.ErrSoldOut, http.StatusConflict, ErrCodeSoldOut},
	{domain.ErrInvalidSignature, http.StatusBadRequest, ErrCodeInvalidSignature},
	{domain.ErrTicketAlreadyUsed, http.StatusConflict, ErrCodeTicketAlreadyUsed},
	{domain.ErrInsufficientPayment, http.StatusPaymentRequired, ErrCodeInsufficientPayment},
}

// FromDomain converts an error returned by the sale services into an APIError.
// Errors that are not domain errors become internal errors without leaking their text.
func FromDomain(err error, message string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return newError(de.status, de.code, message, []string{err.Error()})
		}
	}
	return NewInternalError(message)
}

// IsDomainError reports whether err maps to a client error
func IsDomainError(err error) bool {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return true
		}
	}
	return false
}
