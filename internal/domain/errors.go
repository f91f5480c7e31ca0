package domain

import (
	"errors"
	"fmt"
)

// Local validation errors. These never reach the network.
var (
	ErrVerifyRecipientFirst    = errors.New("verify recipient first")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrDescriptionRequired     = errors.New("description required")
	ErrInvalidPin              = errors.New("pin must be 4 digits")
	ErrIncompleteAccountNumber = errors.New("account number is incomplete")
	ErrRoutingCodeRequired     = errors.New("select recipient bank first")
	ErrInvalidMode             = errors.New("invalid transfer mode")
)

// State errors returned by the transfer machine
var (
	ErrConfirmationNotOpen = errors.New("confirmation is not open")
	ErrSubmissionInFlight  = errors.New("transfer is already being submitted")
	ErrIntentClosed        = errors.New("transfer intent is closed")
)

// ErrMissingRoutingCode is a programmer error: inter-institution verification
// was requested without a routing code.
var ErrMissingRoutingCode = errors.New("routing code is required for inter-institution verification")

// Record errors
var (
	ErrMissingReference     = errors.New("transaction reference cannot be empty")
	ErrNegativeRecordAmount = errors.New("transaction amounts cannot be negative")
)

// APIErrorKind classifies backend failures
type APIErrorKind string

const (
	// APIErrorRejected means the backend answered with a structured error
	APIErrorRejected APIErrorKind = "REJECTED"
	// APIErrorNotFound means the backend could not find the requested entity
	APIErrorNotFound APIErrorKind = "NOT_FOUND"
	// APIErrorUnavailable means the backend could not be reached
	APIErrorUnavailable APIErrorKind = "UNAVAILABLE"
	// APIErrorMalformed means the response could not be decoded
	APIErrorMalformed APIErrorKind = "MALFORMED"
)

// DefaultUnavailableMessage is shown when the backend cannot be reached
const DefaultUnavailableMessage = "network unavailable"

// APIError is a Backend API failure with the message that should reach the user
type APIError struct {
	Kind    APIErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("backend error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("backend error (%s)", e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message to surface to the user for err.
// Backend messages are returned verbatim; malformed responses and unknown
// errors fall back to fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case APIErrorMalformed:
			return fallback
		case APIErrorUnavailable:
			if apiErr.Message == "" {
				return DefaultUnavailableMessage
			}
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}

// IsUnavailable reports whether err is a network-unreachable failure
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == APIErrorUnavailable
}

// VerificationError is a recoverable recipient verification failure
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %s", e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// SubmissionError is a recoverable transfer submission failure.
// Message is shown to the user verbatim.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
