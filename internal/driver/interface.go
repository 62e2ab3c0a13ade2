// Package driver defines the boundary between the chatbot host framework
// and transport drivers.
//
// A driver normalizes platform events into IncomingMessage values, extracts
// conversation answers from free text or interactive callbacks, and turns
// outgoing framework messages back into platform payloads. The host framework
// drives the contract in a fixed order:
//
//  1. BuildPayload with the inbound request or frame
//  2. MatchesRequest to decide whether this driver handles it
//  3. GetMessages / GetConversationAnswer to read the normalized event
//  4. BuildServicePayload / SendPayload to reply
//
// # Thread Safety
//
// Drivers are driven serially per inbound event. The only state that may be
// shared across events is explicitly documented on the driver itself.
package driver

import (
	"context"
	"net/http"
)

// Driver is the surface the host framework consumes.
type Driver interface {
	// GetName returns the driver name used for registration and logging
	GetName() string

	// IsConfigured reports whether the driver has the credentials it needs.
	// The host skips transport methods on unconfigured drivers.
	IsConfigured() bool

	// MatchesRequest reports whether the last built payload belongs to this
	// driver. False tells the host to try the next registered driver.
	MatchesRequest() bool

	// GetMessages returns the normalized messages for the current event
	GetMessages() []IncomingMessage

	// GetConversationAnswer extracts the answer carried by a message,
	// either its raw text or the interactive widget response
	GetConversationAnswer(message IncomingMessage) Answer

	// BuildServicePayload converts an outgoing message (string, *Question or
	// *OutgoingMessage) into the platform wire payload
	BuildServicePayload(message interface{}, matching *IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error)

	// SendPayload delivers a payload built by BuildServicePayload over the
	// driver's transport
	SendPayload(ctx context.Context, payload map[string]interface{}) (*Response, error)

	// GetUser resolves profile information for the message sender
	GetUser(matching *IncomingMessage) User
}

// HTTPDriver is implemented by request-driven drivers.
type HTTPDriver interface {
	Driver

	// BuildPayload parses one inbound HTTP request into driver state
	BuildPayload(r *http.Request) error
}

// EventDriver is implemented by drivers that surface platform-level events
// distinct from chat messages (channel joined, member left, ...).
type EventDriver interface {
	// HasMatchingEvent returns the pending platform event, if any
	HasMatchingEvent() (*GenericEvent, bool)
}

// ServiceVerifier is implemented by drivers whose platform performs an
// endpoint ownership handshake before delivering events.
type ServiceVerifier interface {
	// VerifyRequest returns the handshake response body and true when the
	// request is a verification ping rather than a normal event
	VerifyRequest(r *http.Request) (string, bool)
}

// Response is the outcome of SendPayload. For synchronous webhook replies
// Body is the JSON the caller must write back as the HTTP response; for
// out-of-band API calls it is the platform API response body.
type Response struct {
	StatusCode int
	Body       []byte
}

// User exposes profile information about a message sender.
type User interface {
	ID() string
	Username() string
	FirstName() string
	LastName() string

	// Info returns the raw platform profile record
	Info() map[string]interface{}
}
