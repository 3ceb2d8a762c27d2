package endpoint

import (
	"context"
	"log/slog"

	"github.com/nugget/serial-keel/internal/broadcast"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// Serial wraps a physical serial port. The actual baud/reconnect/codec I/O
// loop is out of scope for this module (spec §1 lists it as an external
// collaborator); Serial provides the shape the control center needs
// (ID/Labels/Token/Subscribe/Send) around an injectable wire, so a real
// driver can be plugged in without touching the control center.
type Serial struct {
	id     ID
	labels Labels
	token  *xtoken.Token

	inbound *broadcast.Broadcaster[Event]
	wire    Wire
}

// Wire is the out-of-scope physical I/O loop's contract: accept a payload
// for writing. Payloads read off the device enter through Serial.Deliver.
type Wire interface {
	Write(ctx context.Context, payload []byte) error
}

// SerialOption configures a Serial endpoint at construction time.
type SerialOption func(*Serial)

// WithSerialLabels attaches labels to the serial endpoint being built.
func WithSerialLabels(labels Labels) SerialOption {
	return func(s *Serial) { s.labels = Union(s.labels, labels) }
}

// WithSerialToken makes the endpoint share an existing token (group
// membership) instead of minting its own.
func WithSerialToken(tok *xtoken.Token) SerialOption {
	return func(s *Serial) { s.token = tok }
}

// WithSerialWire supplies the physical I/O driver. Omit it in tests; Send
// then just fans the payload straight back out as FromWire, which is
// sufficient for exercising registry/control-center code paths without a
// real device attached.
func WithSerialWire(w Wire) SerialOption {
	return func(s *Serial) { s.wire = w }
}

// NewSerial constructs a Serial endpoint. log is reserved for future use by
// a real Wire implementation's connection lifecycle (reconnect, baud
// renegotiation); the in-module stub does not need it.
func NewSerial(id ID, _ *slog.Logger, opts ...SerialOption) *Serial {
	s := &Serial{
		id:      id,
		inbound: broadcast.New[Event](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.token == nil {
		s.token = xtoken.New()
	}
	return s
}

func (s *Serial) ID() ID             { return s.id }
func (s *Serial) Labels() Labels     { return s.labels }
func (s *Serial) Token() *xtoken.Token { return s.token }

func (s *Serial) Subscribe() <-chan Event     { return s.inbound.Subscribe(1024) }
func (s *Serial) Unsubscribe(ch <-chan Event) { s.inbound.Unsubscribe(ch) }

func (s *Serial) Send(ctx context.Context, payload []byte) error {
	s.inbound.Publish(Event{Kind: EventToWire, Payload: payload})
	if s.wire != nil {
		return s.wire.Write(ctx, payload)
	}
	// No physical driver attached: loop the payload back so callers
	// exercising this endpoint still observe a FromWire event.
	s.inbound.Publish(Event{Kind: EventFromWire, Payload: payload})
	return nil
}

// Deliver injects a payload as if it arrived from the physical wire. A
// real Wire implementation calls this from its read loop.
func (s *Serial) Deliver(payload []byte) {
	s.inbound.Publish(Event{Kind: EventFromWire, Payload: payload})
}
