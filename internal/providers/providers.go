// Package providers holds the types shared by the external payment
// gateway clients. Each gateway has its own subpackage; all of them
// normalize their divergent response shapes into InitiateResult and
// report failures as *apperr.ProviderError.
package providers

import (
	"context"
	"errors"
	"net"

	"github.com/Sharon404/wallet-app/internal/apperr"
)

// InitiateResult is the normalized outcome of an initiate call against
// any gateway.
type InitiateResult struct {
	// Reference is the correlation id for the initiated operation: the
	// gateway-assigned id when one is issued, otherwise the idempotency
	// reference we supplied.
	Reference   string
	Code        string
	Description string
}

// Accepted reports whether the gateway accepted the request ("0" is the
// push gateway's success code, "success" the transfer gateway's).
func (r InitiateResult) Accepted() bool {
	return r.Code == "0" || r.Code == "success"
}

// TransportError classifies a failed HTTP round trip. Timeouts are kept
// distinguishable: the request may have reached the gateway, so callers
// must treat them as outcome-unknown rather than failed.
func TransportError(err error) *apperr.ProviderError {
	code := "unreachable"
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = "timeout"
	}
	return &apperr.ProviderError{
		Kind:    apperr.ProviderTransport,
		Code:    code,
		Message: err.Error(),
	}
}
