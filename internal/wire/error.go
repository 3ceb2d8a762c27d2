package wire

import (
	"fmt"

	"github.com/nugget/serial-keel/internal/controlcenter"
)

// Error is the wire form of spec §7's error taxonomy: Kind names which
// variant this is, Msg carries the human-readable detail every variant
// in controlcenter already formats into its Error() string.
type Error struct {
	Kind string `json:"kind"`
	Msg  string `json:"msg"`
}

// FromControlCenterError classifies err into the wire taxonomy. Unknown
// error types (should not happen — every path in controlcenter returns
// one of its own sentinel types) fall back to InternalIssue rather than
// panicking, since this runs on the Peer boundary where a surprise here
// must still produce a valid frame for the client.
func FromControlCenterError(err error) Error {
	switch err.(type) {
	case *controlcenter.NoSuchEndpointError:
		return Error{Kind: "NoSuchEndpoint", Msg: err.Error()}
	case *controlcenter.BadJSONError:
		return Error{Kind: "BadJson", Msg: err.Error()}
	case *controlcenter.NoPermitError:
		return Error{Kind: "NoPermit", Msg: err.Error()}
	case *controlcenter.SuperfluousRequestError:
		return Error{Kind: "SuperfluousRequest", Msg: err.Error()}
	case *controlcenter.NoMatchingEndpointsError:
		return Error{Kind: "NoMatchingEndpoints", Msg: err.Error()}
	case *controlcenter.BadUsageError:
		return Error{Kind: "BadUsage", Msg: err.Error()}
	case *controlcenter.BadConfigError:
		return Error{Kind: "BadConfig", Msg: err.Error()}
	case *controlcenter.TransportIssueError:
		return Error{Kind: "TransportIssue", Msg: err.Error()}
	case *controlcenter.InternalIssueError:
		return Error{Kind: "InternalIssue", Msg: err.Error()}
	default:
		return Error{Kind: "InternalIssue", Msg: fmt.Sprintf("unclassified error: %v", err)}
	}
}

// BadJSON builds the wire error for a frame that did not deserialize.
func BadJSON(raw string, problem error) Error {
	return Error{Kind: "BadJson", Msg: fmt.Sprintf("request %q: %s", raw, problem)}
}

// NoPermit builds the wire error for a Write issued without a controller.
func NoPermit(msg string) Error { return Error{Kind: "NoPermit", Msg: msg} }

// TransportIssue builds the wire error for a lower-level transport fault.
func TransportIssue(msg string) Error { return Error{Kind: "TransportIssue", Msg: msg} }

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }
