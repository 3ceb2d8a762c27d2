package wire

import (
	"encoding/base64"

	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/events"
)

// Frame is the top-level server-to-client message: `Result<Response,
// Error>` per spec §6. Exactly one of Ok/Err is set.
type Frame struct {
	Ok  *Response `json:"Ok,omitempty"`
	Err *Error    `json:"Err,omitempty"`
}

// Response is `{Sync: ...}` or `{Async: ...}`.
type Response struct {
	Sync  *SyncResponse  `json:"Sync,omitempty"`
	Async *AsyncResponse `json:"Async,omitempty"`
}

// SyncResponse answers a request directly. Exactly one field is set.
type SyncResponse struct {
	WriteOk         *struct{}            `json:"WriteOk,omitempty"`
	Observing       *LabelledEndpointID  `json:"Observing,omitempty"`
	ObservingEvents *struct{}            `json:"ObservingEvents,omitempty"`
	ControlQueue    []LabelledEndpointID `json:"ControlQueue,omitempty"`
	ControlGranted  []LabelledEndpointID `json:"ControlGranted,omitempty"`
}

// AsyncResponse is pushed to a client outside the request/reply cycle:
// wire messages from an observed/controlled endpoint, or bus events.
type AsyncResponse struct {
	Message *MessagePush      `json:"Message,omitempty"`
	Event   *TimestampedEvent `json:"Event,omitempty"`
}

// MessagePush carries a payload read from an endpoint's wire, base64
// under the hood via Go's standard []byte JSON encoding.
type MessagePush struct {
	Endpoint LabelledEndpointID `json:"endpoint"`
	Message  []byte             `json:"message"`
}

// TimestampedEvent is the wire form of events.TimestampedEvent.
type TimestampedEvent struct {
	User      string   `json:"user"`
	Kind      string   `json:"kind"`
	Endpoints []string `json:"endpoints,omitempty"`
	Message   *string  `json:"message,omitempty"` // base64, only for message_sent/message_received
	Timestamp string   `json:"timestamp"`          // RFC3339Nano
}

// FromTimestampedEvent converts an internal event to its wire form.
func FromTimestampedEvent(te events.TimestampedEvent) TimestampedEvent {
	out := TimestampedEvent{
		User:      te.Event.User,
		Kind:      string(te.Event.Kind),
		Timestamp: te.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	for _, info := range te.Event.Endpoints {
		out.Endpoints = append(out.Endpoints, info.String())
	}
	if te.Event.Message != nil {
		encoded := base64.StdEncoding.EncodeToString(te.Event.Message.Payload)
		out.Message = &encoded
		out.Endpoints = []string{te.Event.Message.Endpoint.String()}
	}
	return out
}

// WriteOk builds the Sync.WriteOk response.
func WriteOk() Response { return Response{Sync: &SyncResponse{WriteOk: &struct{}{}}} }

// ObservingResponse builds the Sync.Observing response.
func ObservingResponse(info endpoint.Info) Response {
	lid := FromInfo(info)
	return Response{Sync: &SyncResponse{Observing: &lid}}
}

// ObservingEventsResponse builds the Sync.ObservingEvents response.
func ObservingEventsResponse() Response {
	return Response{Sync: &SyncResponse{ObservingEvents: &struct{}{}}}
}

// ControlQueueResponse builds the Sync.ControlQueue response.
func ControlQueueResponse(bundle []endpoint.Info) Response {
	return Response{Sync: &SyncResponse{ControlQueue: FromInfos(bundle)}}
}

// ControlGrantedResponse builds the Sync.ControlGranted response.
func ControlGrantedResponse(bundle []endpoint.Info) Response {
	return Response{Sync: &SyncResponse{ControlGranted: FromInfos(bundle)}}
}

// MessageResponse builds an Async.Message push.
func MessageResponse(info endpoint.Info, payload []byte) Response {
	return Response{Async: &AsyncResponse{Message: &MessagePush{Endpoint: FromInfo(info), Message: payload}}}
}

// EventResponse builds an Async.Event push.
func EventResponse(te events.TimestampedEvent) Response {
	wte := FromTimestampedEvent(te)
	return Response{Async: &AsyncResponse{Event: &wte}}
}
