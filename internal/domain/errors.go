package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable interface for errors that can be retried
type Retryable interface {
	IsRetryable() bool
}

const (
	ErrCodeBookingNotFound    = "BOOKING_NOT_FOUND"
	ErrCodeEmptyNarrative     = "EMPTY_NARRATIVE"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeLedgerTerminal     = "LEDGER_TERMINAL"
	ErrCodeAttemptNotFound    = "ATTEMPT_NOT_FOUND"
	ErrCodeMissingRequired    = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidMerchantRef = "INVALID_MERCHANT_REF"
)

func NewBookingNotFoundError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeBookingNotFound,
		Message: fmt.Sprintf("booking with code %s not found", code),
	}
}

func NewEmptyNarrativeError(externalID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEmptyNarrative,
		Message: fmt.Sprintf("transaction %s has an empty narrative", externalID),
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
	}
}

func NewInvalidTransitionError(from, to BookingStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

func NewLedgerTerminalError(externalID string, status LedgerStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeLedgerTerminal,
		Message: fmt.Sprintf("transaction %s already settled as %s", externalID, status),
	}
}

func NewAttemptNotFoundError(merchTxnRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAttemptNotFound,
		Message: fmt.Sprintf("payment attempt %s not found", merchTxnRef),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequired,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidMerchantRefError() *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidMerchantRef,
		Message: "merchant transaction reference must not be empty",
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
