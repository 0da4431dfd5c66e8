// Package respond holds the response-generating strategies a chat session can
// route user turns through, and the registry that selects the active one.
//
// Every strategy satisfies Responder; there is no shared base type. The
// catalog is fixed at startup: services are registered once and never
// destroyed, though their configuration (a credential) can change at runtime
// independently of which service is active.
package respond

import (
	"context"
	"errors"
)

var (
	// ErrUnknownService indicates a registry lookup for an unregistered id.
	ErrUnknownService = errors.New("respond: unknown service")
	// ErrUnconfigured indicates a remote service was invoked without a credential.
	ErrUnconfigured = errors.New("respond: service is not configured")
	// ErrUpstream indicates the remote call returned a non-success status.
	ErrUpstream = errors.New("respond: upstream request failed")
	// ErrMalformedResponse indicates a success response without the expected reply.
	ErrMalformedResponse = errors.New("respond: malformed upstream response")
	// ErrNotCredentialed indicates the service takes no credential.
	ErrNotCredentialed = errors.New("respond: service does not accept a credential")
)

// Responder converts user text into a reply.
type Responder interface {
	// Respond produces a reply for the given user text. Remote variants may
	// block on a network round trip and honor ctx cancellation.
	Respond(ctx context.Context, text string) (string, error)

	// Configured reports whether the service can currently produce replies.
	Configured() bool

	// Name returns the human-readable service name.
	Name() string
}

// Credentialed is implemented by services whose configuration holds a
// credential that can be set at runtime.
type Credentialed interface {
	SetCredential(value string)
}

// Info describes a registered service for display purposes.
type Info struct {
	ID         string
	Name       string
	Configured bool
}
