package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeStaleTimestamp = "STALE_TIMESTAMP"
	ErrCodePayloadTooBig  = "PAYLOAD_TOO_LARGE"
	ErrCodeMisconfigured  = "SERVER_MISCONFIGURED"
)

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewNotFoundError(resource string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "Missing or invalid API credential",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewRateLimitedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func NewStaleTimestampError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeStaleTimestamp,
		Message:    "Transaction timestamp outside the accepted window",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewPayloadTooBigError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayloadTooBig,
		Message:    "Request body exceeds the accepted size",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func NewMisconfiguredError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMisconfigured,
		Message:    "Webhook authentication is not configured",
		HTTPStatus: http.StatusInternalServerError,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
