package wire

import (
	"encoding/json"
	"testing"

	"github.com/nugget/serial-keel/internal/controlcenter"
	"github.com/nugget/serial-keel/internal/endpoint"
)

func TestEndpointIDRoundTrip(t *testing.T) {
	tty := "/dev/ttyACM0"
	id := EndpointID{Tty: &tty}

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"Tty":"/dev/ttyACM0"}` {
		t.Fatalf("Marshal = %s, want tagged Tty object", got)
	}

	var decoded EndpointID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Tty == nil || *decoded.Tty != tty {
		t.Fatalf("decoded.Tty = %v, want %q", decoded.Tty, tty)
	}
}

func TestEndpointIDToEndpointID(t *testing.T) {
	mockName := "loopback"
	id := EndpointID{Mock: &mockName}

	got, err := id.ToEndpointID("alice")
	if err != nil {
		t.Fatal(err)
	}
	want := endpoint.Mock("alice", "loopback")
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEndpointIDBothSetIsError(t *testing.T) {
	tty, mockName := "/dev/ttyACM0", "loopback"
	id := EndpointID{Tty: &tty, Mock: &mockName}

	if _, err := id.ToEndpointID("alice"); err == nil {
		t.Fatal("expected error when both Tty and Mock are set")
	}
}

func TestWriteTextRoundTrip(t *testing.T) {
	tty := "/dev/ttyACM0"
	w := WriteText{ID: EndpointID{Tty: &tty}, Message: "hello"}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}

	var decoded WriteText
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Message != "hello" || decoded.ID.Tty == nil || *decoded.ID.Tty != tty {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestWriteBytesTupRoundTrip(t *testing.T) {
	mockName := "loopback"
	w := WriteBytesTup{ID: EndpointID{Mock: &mockName}, Payload: []byte{0xde, 0xad, 0xbe, 0xef}}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}

	var decoded WriteBytesTup
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Payload) != 4 || decoded.Payload[0] != 0xde {
		t.Fatalf("payload mismatch: %x", decoded.Payload)
	}
}

func TestClientMessageKind(t *testing.T) {
	tty := "/dev/ttyACM0"
	tests := []struct {
		name string
		msg  ClientMessage
		want string
	}{
		{"control", ClientMessage{Control: &EndpointID{Tty: &tty}}, "Control"},
		{"observe-events", ClientMessage{ObserveEvents: &struct{}{}}, "ObserveEvents"},
		{"empty", ClientMessage{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Kind(); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientMessageUnmarshalControlAny(t *testing.T) {
	var msg ClientMessage
	if err := json.Unmarshal([]byte(`{"ControlAny":["fast","secure"]}`), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Kind() != "ControlAny" {
		t.Fatalf("Kind() = %q, want ControlAny", msg.Kind())
	}
	if len(*msg.ControlAny) != 2 {
		t.Fatalf("labels = %v, want 2 entries", *msg.ControlAny)
	}
}

func TestFromControlCenterErrorClassifies(t *testing.T) {
	err := &controlcenter.NoPermitError{Msg: "write /dev/ttyACM0"}
	got := FromControlCenterError(err)
	if got.Kind != "NoPermit" {
		t.Fatalf("Kind = %q, want NoPermit", got.Kind)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	info := endpoint.Info{ID: endpoint.Tty("/dev/ttyACM0"), Labels: endpoint.Labels{"fast"}}
	frame := Frame{Ok: func() *Response { r := ObservingResponse(info); return &r }()}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Frame
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Ok == nil || decoded.Ok.Sync == nil || decoded.Ok.Sync.Observing == nil {
		t.Fatalf("decoded frame missing Sync.Observing: %+v", decoded)
	}
	if decoded.Ok.Sync.Observing.ID.Tty == nil || *decoded.Ok.Sync.Observing.ID.Tty != "/dev/ttyACM0" {
		t.Fatalf("decoded endpoint id mismatch: %+v", decoded.Ok.Sync.Observing.ID)
	}
}
