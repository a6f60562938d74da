package errors

import (
	"errors"
	"net/http"
)

// Standard error classes raised by the shipping service
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("resource conflict")
	ErrInternal            = errors.New("internal server error")
	ErrAllocationExhausted = errors.New("allocation exhausted")
	ErrBrokerUnavailable   = errors.New("broker unavailable")
)

// AppError carries an error class together with the HTTP status it maps to
// and whether a retry could succeed
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
	Context    map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error class
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext attaches a key/value pair to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates an AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Context:    make(map[string]interface{}),
	}
}

// IsRetryable reports whether retrying the operation could succeed
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return errors.Is(err, ErrBrokerUnavailable)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, false)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, false)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}

// NewAllocationExhaustedError creates an error for a failed tracking number
// allocation
func NewAllocationExhaustedError(message string) *AppError {
	return NewAppError(ErrAllocationExhausted, message, http.StatusInternalServerError, true)
}

// NewBrokerUnavailableError creates an error for a broker that cannot be
// reached
func NewBrokerUnavailableError(message string) *AppError {
	return NewAppError(ErrBrokerUnavailable, message, http.StatusServiceUnavailable, true)
}
