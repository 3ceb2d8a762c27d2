package endpoint

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/nugget/serial-keel/internal/broadcast"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// MockEndpoint is an in-memory loopback endpoint. Every payload accepted via Send
// is split on newlines, and each resulting line is re-emitted as both a
// ToWire and a FromWire event, emulating a per-line loopback serial port.
type MockEndpoint struct {
	id     ID
	labels Labels
	token  *xtoken.Token

	inbound *broadcast.Broadcaster[Event]
	writes  chan []byte

	log *slog.Logger
}

// MockOption configures a Mock at construction time.
type MockOption func(*MockEndpoint)

// WithMockLabels attaches labels to the mock being built.
func WithMockLabels(labels Labels) MockOption {
	return func(m *MockEndpoint) { m.labels = Union(m.labels, labels) }
}

// WithMockToken makes the mock share an existing token (group membership)
// instead of minting its own.
func WithMockToken(tok *xtoken.Token) MockOption {
	return func(m *MockEndpoint) { m.token = tok }
}

// NewMock builds and starts a mock endpoint's loopback loop.
func NewMock(id ID, log *slog.Logger, opts ...MockOption) *MockEndpoint {
	if log == nil {
		log = slog.Default()
	}
	m := &MockEndpoint{
		id:      id,
		inbound: broadcast.New[Event](),
		writes:  make(chan []byte, 64),
		log:     log.With("endpoint", id.String()),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.token == nil {
		m.token = xtoken.New()
	}

	go m.run()
	return m
}

func (m *MockEndpoint) run() {
	m.log.Debug("mock endpoint running")
	for payload := range m.writes {
		lines := bytes.Split(payload, []byte("\n"))
		for _, line := range lines {
			if len(line) == 0 {
				continue
			}
			m.inbound.Publish(Event{Kind: EventToWire, Payload: line})
			m.inbound.Publish(Event{Kind: EventFromWire, Payload: line})
		}
	}
	m.log.Debug("mock endpoint stopped")
}

func (m *MockEndpoint) ID() ID         { return m.id }
func (m *MockEndpoint) Labels() Labels { return m.labels }
func (m *MockEndpoint) Token() *xtoken.Token { return m.token }

func (m *MockEndpoint) Subscribe() <-chan Event        { return m.inbound.Subscribe(1024) }
func (m *MockEndpoint) Unsubscribe(ch <-chan Event)    { m.inbound.Unsubscribe(ch) }

func (m *MockEndpoint) Send(ctx context.Context, payload []byte) error {
	select {
	case m.writes <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
