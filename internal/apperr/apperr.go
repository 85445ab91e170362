// Package apperr defines the caller-visible error taxonomy for money
// movement. Every failure a client can act on is one of these values;
// handlers map them to HTTP status codes at the boundary.
package apperr

import "errors"

// Error is a domain error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	ErrValidation = &Error{
		Code:    "VALIDATION_ERROR",
		Message: "invalid request",
		Status:  400,
	}
	ErrInsufficientFunds = &Error{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
		Status:  400,
	}
	ErrRecipientNotFound = &Error{
		Code:    "RECIPIENT_NOT_FOUND",
		Message: "recipient not found",
		Status:  400,
	}
	ErrInvalidCredential = &Error{
		Code:    "INVALID_CREDENTIAL",
		Message: "invalid PIN or OTP",
		Status:  400,
	}
	ErrRateUnavailable = &Error{
		Code:    "RATE_UNAVAILABLE",
		Message: "exchange rate unavailable",
		Status:  400,
	}
	ErrUnsupportedFlow = &Error{
		Code:    "UNSUPPORTED_FLOW",
		Message: "unsupported source/destination combination",
		Status:  400,
	}
	ErrCurrencyMismatch = &Error{
		Code:    "CURRENCY_MISMATCH",
		Message: "wallet currency mismatch",
		Status:  400,
	}
	ErrNotFound = &Error{
		Code:    "NOT_FOUND",
		Message: "resource not found",
		Status:  404,
	}
	ErrForbidden = &Error{
		Code:    "FORBIDDEN",
		Message: "access denied",
		Status:  403,
	}
)

// ProviderErrorKind classifies gateway failures.
type ProviderErrorKind string

const (
	ProviderTransport ProviderErrorKind = "transport"
	ProviderAuth      ProviderErrorKind = "auth"
	ProviderRejected  ProviderErrorKind = "rejected"
)

// ProviderError is a normalized failure from an external payment gateway.
type ProviderError struct {
	Kind    ProviderErrorKind
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return "provider error (" + string(e.Kind) + "): " + e.Message
}

// IsProviderTimeout reports whether err is an ambiguous transport timeout:
// the request may have reached the gateway, so the caller must not assume
// the operation failed.
func IsProviderTimeout(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderTransport && pe.Code == "timeout"
	}
	return false
}
