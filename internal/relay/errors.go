package relay

import (
	"errors"
	"fmt"

	"github.com/tribe-app/tribe_auth/internal/privy"
)

var (
	ErrEmailRequired        = errors.New("email is required")
	ErrEmailAndCodeRequired = errors.New("email and code are required")
	// ErrNotConfigured is returned before any network call when the service
	// credentials are missing.
	ErrNotConfigured = errors.New("privy credentials missing")
	ErrUserIDMissing = errors.New("user id missing in provider response")
)

// Client-facing messages.
const (
	msgEmailRequired        = "Email is required"
	msgEmailAndCodeRequired = "Email and code are required"
	msgNotConfigured        = "Server configuration error: Privy credentials missing"
	msgUserIDMissing        = "User ID missing in response"
	msgEndpointNotFound     = "Authentication service endpoint not found. Please check Privy API configuration."
	msgDNS                  = "Network connectivity issue. Please check your internet connection."
	msgConnectivity         = "Unable to connect to authentication service. Please try again."
	msgSendFailed           = "Failed to send login code"
	msgVerifyFailed         = "Failed to verify code"
	msgWalletFailed         = "User authenticated successfully, but wallet creation failed"
	msgInvalidBody          = "Invalid request body"
)

type operation int

const (
	opSend operation = iota
	opVerify
)

func (o operation) String() string {
	if o == opVerify {
		return "verify-code"
	}
	return "send-login-code"
}

// ProviderError carries a non-2xx provider reply that is forwarded verbatim.
type ProviderError struct {
	Status int
	Body   []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider responded with status %d", e.Status)
}

// UpstreamError is a provider call that produced no usable response.
type UpstreamError struct {
	op  operation
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Message returns the text shown to the client.
func (e *UpstreamError) Message() string {
	if errors.Is(e.Err, privy.ErrEndpointNotFound) {
		return msgEndpointNotFound
	}
	switch privy.Classify(e.Err) {
	case privy.ClassDNS:
		return msgDNS
	case privy.ClassConnectivity:
		return msgConnectivity
	}
	if e.op == opVerify {
		return msgVerifyFailed
	}
	return msgSendFailed
}
