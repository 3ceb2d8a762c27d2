package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ClientMessage is one frame received from a client: exactly one field is
// set, matching spec §6's tagged-union Action schema
// (`{"Control": <EndpointId>}`, `{"Write": [<EndpointId>, "text"]}`, ...).
type ClientMessage struct {
	Control       *EndpointID     `json:"Control,omitempty"`
	ControlAny    *[]string       `json:"ControlAny,omitempty"`
	Observe       *EndpointID     `json:"Observe,omitempty"`
	Write         *WriteText      `json:"Write,omitempty"`
	WriteBytes    *WriteBytesTup  `json:"WriteBytes,omitempty"`
	ObserveEvents *struct{}       `json:"ObserveEvents,omitempty"`
}

// WriteText is the (EndpointId, utf8 string) tuple carried by Write,
// encoded as a two-element JSON array the way a Rust `(EndpointId,
// String)` tuple serializes under serde — the same tuple-as-array idiom
// the teacher uses for Duration's custom (de)serialization
// (internal/scheduler/types.go).
type WriteText struct {
	ID      EndpointID
	Message string
}

func (w WriteText) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{w.ID, w.Message})
}

func (w *WriteText) UnmarshalJSON(data []byte) error {
	var tup [2]json.RawMessage
	if err := json.Unmarshal(data, &tup); err != nil {
		return fmt.Errorf("Write payload must be a 2-element [EndpointId, string] tuple: %w", err)
	}
	if err := json.Unmarshal(tup[0], &w.ID); err != nil {
		return err
	}
	return json.Unmarshal(tup[1], &w.Message)
}

// WriteBytesTup is the (EndpointId, bytes) tuple carried by WriteBytes.
// Bytes round-trip through encoding/json's standard []byte<->base64
// string behavior.
type WriteBytesTup struct {
	ID      EndpointID
	Payload []byte
}

func (w WriteBytesTup) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{w.ID, base64.StdEncoding.EncodeToString(w.Payload)})
}

func (w *WriteBytesTup) UnmarshalJSON(data []byte) error {
	var tup [2]json.RawMessage
	if err := json.Unmarshal(data, &tup); err != nil {
		return fmt.Errorf("WriteBytes payload must be a 2-element [EndpointId, bytes] tuple: %w", err)
	}
	if err := json.Unmarshal(tup[0], &w.ID); err != nil {
		return err
	}
	return json.Unmarshal(tup[1], &w.Payload)
}

// Kind reports which tagged variant a decoded ClientMessage actually is,
// or "" if every field decoded empty (a malformed/empty frame).
func (m ClientMessage) Kind() string {
	switch {
	case m.Control != nil:
		return "Control"
	case m.ControlAny != nil:
		return "ControlAny"
	case m.Observe != nil:
		return "Observe"
	case m.Write != nil:
		return "Write"
	case m.WriteBytes != nil:
		return "WriteBytes"
	case m.ObserveEvents != nil:
		return "ObserveEvents"
	default:
		return ""
	}
}
