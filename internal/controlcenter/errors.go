package controlcenter

import (
	"fmt"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// NoSuchEndpointError reports a reference to an endpoint id the registry
// does not know. Observe and Control return it only for serial ids, since
// they create mocks on first reference; Handle.LookupEndpoint also returns
// it for a mock that is not (or no longer) in the registry.
type NoSuchEndpointError struct{ ID endpoint.ID }

func (e *NoSuchEndpointError) Error() string {
	return fmt.Sprintf("the endpoint %q does not exist", e.ID)
}

// BadJSONError reports a client frame that did not deserialize.
type BadJSONError struct {
	Request string
	Problem string
}

func (e *BadJSONError) Error() string {
	return fmt.Sprintf("the request %q could not be deserialized: %s", e.Request, e.Problem)
}

// NoPermitError reports a write attempted on an endpoint the user does not
// control.
type NoPermitError struct{ Msg string }

func (e *NoPermitError) Error() string { return fmt.Sprintf("no permit: %s", e.Msg) }

// SuperfluousRequestError reports a request the user did not need to make:
// observing the same endpoint twice, or controlling/queuing for something
// already held or queued.
type SuperfluousRequestError struct{ Msg string }

func (e *SuperfluousRequestError) Error() string {
	return fmt.Sprintf("the request was superfluous: %s", e.Msg)
}

// NoMatchingEndpointsError reports a ControlAny whose labels matched
// nothing.
type NoMatchingEndpointsError struct{ Labels endpoint.Labels }

func (e *NoMatchingEndpointsError) Error() string {
	return fmt.Sprintf("the labels %v matched no endpoints", e.Labels)
}

// BadUsageError reports a request that does not conform to valid usage:
// an empty label set, a duplicate event subscription, or a ControlAny
// whose every candidate errored.
type BadUsageError struct{ Msg string }

func (e *BadUsageError) Error() string {
	return fmt.Sprintf("the request did not conform to valid usage: %s", e.Msg)
}

// BadConfigError reports a configuration validation failure at startup.
type BadConfigError struct{ Msg string }

func (e *BadConfigError) Error() string {
	return fmt.Sprintf("the server configuration is not valid: %s", e.Msg)
}

// TransportIssueError wraps a lower-level transport error surfaced to
// clients.
type TransportIssueError struct{ Msg string }

func (e *TransportIssueError) Error() string {
	return fmt.Sprintf("a transport problem occurred: %s", e.Msg)
}

// InternalIssueError is reserved for invariant violations that are
// nonetheless recoverable (e.g. a request carrying an action type the
// control center does not recognise).
type InternalIssueError struct{ Msg string }

func (e *InternalIssueError) Error() string {
	return fmt.Sprintf("an internal issue occurred: %s", e.Msg)
}
