package controlcenter

import (
	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/events"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// Action is a request a Peer can make of the control center, carrying an
// implicit user identity and reply channel at the Handle.Do boundary.
type Action interface{ isAction() }

// ObserveAction requests a read-only subscription to id, auto-creating a
// mock if id is one and not yet known.
type ObserveAction struct{ ID endpoint.ID }

func (ObserveAction) isAction() {}

// ControlAction requests exclusive control of id.
type ControlAction struct{ ID endpoint.ID }

func (ControlAction) isAction() {}

// ControlAnyAction requests exclusive control of the first endpoint whose
// labels are a superset of Labels.
type ControlAnyAction struct{ Labels endpoint.Labels }

func (ControlAnyAction) isAction() {}

// SubscribeToEventsAction requests a subscription to the event bus.
type SubscribeToEventsAction struct{}

func (SubscribeToEventsAction) isAction() {}

// Inform is a one-way notice to the control center; no reply is sent.
type Inform interface{ isInform() }

// UserArrivedInform announces a new connection.
type UserArrivedInform struct{}

func (UserArrivedInform) isInform() {}

// UserLeftInform announces a connection has ended; the control center
// drains and removes that user's state.
type UserLeftInform struct{}

func (UserLeftInform) isInform() {}

// UserRequest records which original request led to a NowControllingInform,
// so the label-diff fixup in §4.4.7 only applies to ControlAny grants.
type UserRequest interface{ isUserRequest() }

// EndpointIDRequest means the grant resulted from a plain ControlAction.
type EndpointIDRequest struct{ ID endpoint.ID }

func (EndpointIDRequest) isUserRequest() {}

// LabelsRequest means the grant resulted from a ControlAnyAction.
type LabelsRequest struct{ Labels endpoint.Labels }

func (LabelsRequest) isUserRequest() {}

// NowControllingInform is sent by a Peer once it actually holds a granted
// controller (immediately, or after a queue resolves). Request identifies
// which action produced the grant; GotControl lists the endpoints now
// owned (always exactly one token's worth).
type NowControllingInform struct {
	Request    UserRequest
	GotControl []endpoint.Info
}

func (NowControllingInform) isInform() {}

// MessageReceivedInform announces a payload read from an endpoint's wire.
type MessageReceivedInform struct {
	Info    endpoint.Info
	Payload []byte
}

func (MessageReceivedInform) isInform() {}

// MessageSentInform announces a payload accepted for writing.
type MessageSentInform struct {
	ID      endpoint.ID
	Payload []byte
}

func (MessageSentInform) isInform() {}

// Response is what a Request eventually receives in place of an error.
type Response interface{ isResponse() }

// EndpointObserverResponse answers ObserveAction.
type EndpointObserverResponse struct {
	Info   endpoint.Info
	Events <-chan endpoint.Event
}

func (EndpointObserverResponse) isResponse() {}

// EventSubscriptionResponse answers SubscribeToEventsAction.
type EventSubscriptionResponse struct {
	Events <-chan events.TimestampedEvent
}

func (EventSubscriptionResponse) isResponse() {}

// ControlResponse answers ControlAction/ControlAnyAction: exactly one of
// Available or Busy is set.
type ControlResponse struct {
	Available *AvailableController
	Busy      *BusyController
}

func (ControlResponse) isResponse() {}

// AvailableController is a realized grant: Token's permit is already held
// by the caller. The caller (a Peer) must call Token.Release() once it
// stops controlling these endpoints — Go has no destructor to do this
// implicitly the way the reference implementation's Drop impl does.
type AvailableController struct {
	Bundle []endpoint.Info
	Token  *xtoken.Token
}

// BusyController is a queue promise: Ready delivers an AvailableController
// exactly once, when the permit becomes free and this waiter wins it. If
// the waiter is abandoned (the user disconnects first), nothing is ever
// sent and the permit goes to the next waiter in line untouched.
type BusyController struct {
	Bundle []endpoint.Info
	Ready  <-chan *AvailableController
}
