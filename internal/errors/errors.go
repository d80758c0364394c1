// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	CodeInvalidParty        ErrorCode = "INVALID_PARTY"
	CodeSelfTransfer        ErrorCode = "SELF_TRANSFER_REJECTED"
	CodeSelfReference       ErrorCode = "SELF_REFERENCE_REJECTED"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	CodeNotAuthenticated    ErrorCode = "NOT_AUTHENTICATED"
	CodeEmptyComment        ErrorCode = "EMPTY_COMMENT"
	CodeCommentTooLong      ErrorCode = "COMMENT_TOO_LONG"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	CodeIdempotencyConflict ErrorCode = "IDEMPOTENCY_CONFLICT"
	CodeInvalidRelation     ErrorCode = "INVALID_RELATION"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error carrying a code, a user-facing message and the
// HTTP status it maps to.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches on code so that a copy produced by WithDetails or Wrap still
// satisfies errors.Is against the package sentinel.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Wrap returns a copy of the error that records cause as the underlying error.
func (e *ServiceError) Wrap(cause error) *ServiceError {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(code ErrorCode, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// Domain sentinels. Compare with errors.Is.
var (
	ErrInvalidParty        = newError(CodeInvalidParty, http.StatusBadRequest, "unknown or missing transfer party")
	ErrSelfTransfer        = newError(CodeSelfTransfer, http.StatusUnprocessableEntity, "cannot transfer to yourself")
	ErrSelfReference       = newError(CodeSelfReference, http.StatusUnprocessableEntity, "cannot follow yourself")
	ErrInvalidAmount       = newError(CodeInvalidAmount, http.StatusBadRequest, "amount must be positive, below 10^16 and have at most 4 decimal places")
	ErrInsufficientFunds   = newError(CodeInsufficientFunds, http.StatusUnprocessableEntity, "insufficient balance")
	ErrNotAuthenticated    = newError(CodeNotAuthenticated, http.StatusUnauthorized, "not signed in")
	ErrEmptyComment        = newError(CodeEmptyComment, http.StatusBadRequest, "comment cannot be empty")
	ErrCommentTooLong      = newError(CodeCommentTooLong, http.StatusBadRequest, "comment exceeds 500 characters")
	ErrNotFound            = newError(CodeNotFound, http.StatusNotFound, "not found")
	ErrStoreUnavailable    = newError(CodeStoreUnavailable, http.StatusServiceUnavailable, "store temporarily unavailable")
	ErrIdempotencyConflict = newError(CodeIdempotencyConflict, http.StatusConflict, "idempotency key already used for a different request")
	ErrInvalidRelation     = newError(CodeInvalidRelation, http.StatusBadRequest, "unknown relation")
)

// NotFound returns ErrNotFound annotated with the missing resource.
func NotFound(resource, id string) *ServiceError {
	return ErrNotFound.WithDetails("resource", resource).WithDetails("id", id)
}

// StoreUnavailable wraps a transient storage failure.
func StoreUnavailable(cause error) *ServiceError {
	return ErrStoreUnavailable.Wrap(cause)
}

// InvalidInput reports a malformed request field.
func InvalidInput(field, reason string) *ServiceError {
	return newError(CodeInvalidInput, http.StatusBadRequest, fmt.Sprintf("%s: %s", field, reason)).
		WithDetails("field", field)
}

// Unauthorized reports a missing or malformed credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(CodeNotAuthenticated, http.StatusUnauthorized, message)
}

// InvalidToken reports a token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid token").Wrap(cause)
}

// Forbidden reports an authenticated actor lacking the required role.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded").
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message).Wrap(cause)
}

// GetServiceError extracts the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus maps any error to a response status; unknown errors are 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether the caller may retry the operation.
// Only transient store failures qualify.
func IsRetryable(err error) bool {
	return stderrors.Is(err, ErrStoreUnavailable)
}
