package endpoint

import (
	"context"

	"github.com/nugget/serial-keel/internal/xtoken"
)

// EventKind discriminates the two directions a byte payload can flow.
type EventKind string

const (
	EventToWire   EventKind = "to_wire"
	EventFromWire EventKind = "from_wire"
)

// Event is something that happened on an endpoint's wire: a payload
// accepted for writing (ToWire) or a payload read off the wire
// (FromWire).
type Event struct {
	Kind    EventKind
	Payload []byte
}

// Endpoint abstracts a byte-oriented duplex channel, mock or serial.
type Endpoint interface {
	// ID is this endpoint's identity.
	ID() ID
	// Labels are the tags currently attached to this endpoint.
	Labels() Labels
	// Token is the shared exclusivity token. Endpoints in the same group
	// return the identical *xtoken.Token instance.
	Token() *xtoken.Token
	// Subscribe returns a channel of future wire events. Late subscribers
	// never see events published before they subscribed.
	Subscribe() <-chan Event
	// Unsubscribe releases a channel obtained from Subscribe.
	Unsubscribe(<-chan Event)
	// Send accepts a payload for writing onto the wire. Returns once the
	// payload is accepted onto the endpoint's outbound queue — there is
	// no delivery confirmation.
	Send(ctx context.Context, payload []byte) error
}
