// Package events defines the control center's event taxonomy and a
// bounded, broadcastable log of them.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// Kind discriminates the event variants a user can generate.
type Kind string

const (
	KindConnected           Kind = "connected"
	KindDisconnected        Kind = "disconnected"
	KindMessageSent         Kind = "message_sent"
	KindMessageReceived     Kind = "message_received"
	KindObserving           Kind = "observing"
	KindNoLongerObserving   Kind = "no_longer_observing"
	KindInQueueFor          Kind = "in_queue_for"
	KindInControlOf         Kind = "in_control_of"
	KindNoLongerInQueueOf   Kind = "no_longer_in_queue_of"
	KindNoLongerInControlOf Kind = "no_longer_in_control_of"
)

// Event is a single thing that happened to a user, always user-scoped
// (the "general" message events of spec §3 are represented here the same
// way the reference implementation represents them: tied to the user who
// sent or received the message).
type Event struct {
	User      string
	Kind      Kind
	Endpoints []endpoint.Info // for Observing/InQueueFor/InControlOf/... variants
	Message   *Message        // for MessageSent/MessageReceived
}

// Message is the payload carried by MessageSent/MessageReceived events.
type Message struct {
	Endpoint endpoint.Info
	Payload  []byte
}

func (e Event) String() string {
	switch e.Kind {
	case KindConnected:
		return fmt.Sprintf("%s: connected", e.User)
	case KindDisconnected:
		return fmt.Sprintf("%s: disconnected", e.User)
	case KindMessageSent:
		return fmt.Sprintf("%s: sent %q to %s", e.User, e.Message.Payload, e.Message.Endpoint)
	case KindMessageReceived:
		return fmt.Sprintf("%s: received %q from %s", e.User, e.Message.Payload, e.Message.Endpoint)
	default:
		return fmt.Sprintf("%s: %s %s", e.User, e.Kind, formatEndpoints(e.Endpoints))
	}
}

func formatEndpoints(infos []endpoint.Info) string {
	parts := make([]string, len(infos))
	for i, info := range infos {
		parts[i] = info.String()
	}
	return strings.Join(parts, ", ")
}

// TimestampedEvent wraps an Event with the time it was emitted, the unit
// actually stored in the log and broadcast.
type TimestampedEvent struct {
	Event     Event
	Timestamp time.Time
}

func newEvent(user string, kind Kind, endpoints []endpoint.Info) Event {
	return Event{User: user, Kind: kind, Endpoints: endpoints}
}

// Connected builds a Connected event.
func Connected(user string) Event { return newEvent(user, KindConnected, nil) }

// Disconnected builds a Disconnected event.
func Disconnected(user string) Event { return newEvent(user, KindDisconnected, nil) }

// Observing builds an Observing event.
func Observing(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindObserving, endpoints)
}

// NoLongerObserving builds a NoLongerObserving event.
func NoLongerObserving(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindNoLongerObserving, endpoints)
}

// InQueueFor builds an InQueueFor event.
func InQueueFor(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindInQueueFor, endpoints)
}

// InControlOf builds an InControlOf event.
func InControlOf(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindInControlOf, endpoints)
}

// NoLongerInQueueOf builds a NoLongerInQueueOf event.
func NoLongerInQueueOf(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindNoLongerInQueueOf, endpoints)
}

// NoLongerInControlOf builds a NoLongerInControlOf event.
func NoLongerInControlOf(user string, endpoints []endpoint.Info) Event {
	return newEvent(user, KindNoLongerInControlOf, endpoints)
}

// MessageSentEvent builds a MessageSent event.
func MessageSentEvent(user string, info endpoint.Info, payload []byte) Event {
	return Event{User: user, Kind: KindMessageSent, Message: &Message{Endpoint: info, Payload: payload}}
}

// MessageReceivedEvent builds a MessageReceived event.
func MessageReceivedEvent(user string, info endpoint.Info, payload []byte) Event {
	return Event{User: user, Kind: KindMessageReceived, Message: &Message{Endpoint: info, Payload: payload}}
}
