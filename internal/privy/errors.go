package privy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrCredentialsMissing is returned before any network call when the
	// service identity is not configured.
	ErrCredentialsMissing = errors.New("privy credentials missing")
	// ErrEndpointNotFound means every candidate answered 404.
	ErrEndpointNotFound = errors.New("no candidate endpoint accepted the request")
	// ErrNoCandidates means the endpoint source returned an empty list.
	ErrNoCandidates = errors.New("no candidate endpoints configured")
)

// TransportError wraps a failure below HTTP (DNS, dial, TLS, timeout) after
// the retry budget for an endpoint was spent.
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Class buckets transport failures for client-facing messages.
type Class int

const (
	ClassGeneric Class = iota
	ClassDNS
	ClassConnectivity
)

func (c Class) String() string {
	switch c {
	case ClassDNS:
		return "dns"
	case ClassConnectivity:
		return "connectivity"
	default:
		return "generic"
	}
}

// Classify inspects an error chain and reports which kind of failure it is.
func Classify(err error) Class {
	if err == nil {
		return ClassGeneric
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassDNS
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassConnectivity
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassConnectivity
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return ClassConnectivity
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassConnectivity
	}
	return ClassGeneric
}
