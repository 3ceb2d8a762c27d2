package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/wire"
)

// runDocs emits example requests, responses, and a narrated session as
// JSON, for documentation purposes (spec §6). Grounded on
// original_source/core/src/cli.rs's Examples subcommand tree, trimmed to
// a flat `docs <kind>` dispatch matching this CLI's flag-based style
// instead of clap's nested subcommands.
func runDocs(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: serial-keel docs <kind>")
		fmt.Fprintln(os.Stderr, "kinds: control-tty, control-mock, control-any, observe-tty,")
		fmt.Fprintln(os.Stderr, "       observe-mock, write, write-bytes, observe-events,")
		fmt.Fprintln(os.Stderr, "       control-granted, control-queue, observing, write-ok,")
		fmt.Fprintln(os.Stderr, "       observing-events, message, session")
		os.Exit(1)
	}

	switch args[0] {
	case "control-tty":
		printJSON(wire.ClientMessage{Control: tty("/dev/ttyACM0")})
	case "control-mock":
		printJSON(wire.ClientMessage{Control: mock("loopback")})
	case "control-any":
		labels := []string{"fast", "secure"}
		printJSON(wire.ClientMessage{ControlAny: &labels})
	case "observe-tty":
		printJSON(wire.ClientMessage{Observe: tty("/dev/ttyACM0")})
	case "observe-mock":
		printJSON(wire.ClientMessage{Observe: mock("loopback")})
	case "write":
		printJSON(wire.ClientMessage{Write: &wire.WriteText{ID: *tty("/dev/ttyACM0"), Message: "hello"}})
	case "write-bytes":
		printJSON(wire.ClientMessage{WriteBytes: &wire.WriteBytesTup{ID: *tty("/dev/ttyACM0"), Payload: []byte{0xde, 0xad, 0xbe, 0xef}}})
	case "observe-events":
		printJSON(wire.ClientMessage{ObserveEvents: &struct{}{}})
	case "control-granted":
		printJSON(wire.Frame{Ok: okResp(wire.ControlGrantedResponse([]endpoint.Info{ttyInfo("/dev/ttyACM0", "fast")}))})
	case "control-queue":
		printJSON(wire.Frame{Ok: okResp(wire.ControlQueueResponse([]endpoint.Info{ttyInfo("/dev/ttyACM1", "fast", "secure")}))})
	case "observing":
		printJSON(wire.Frame{Ok: okResp(wire.ObservingResponse(ttyInfo("/dev/ttyACM0")))})
	case "write-ok":
		printJSON(wire.Frame{Ok: okResp(wire.WriteOk())})
	case "observing-events":
		printJSON(wire.Frame{Ok: okResp(wire.ObservingEventsResponse())})
	case "message":
		printJSON(wire.Frame{Ok: okResp(wire.MessageResponse(ttyInfo("/dev/ttyACM0"), []byte("Hello, world")))})
	case "session":
		printSession()
	default:
		fmt.Fprintf(os.Stderr, "unknown docs kind: %s\n", args[0])
		os.Exit(1)
	}
}

func tty(path string) *wire.EndpointID {
	return &wire.EndpointID{Tty: &path}
}

func mock(name string) *wire.EndpointID {
	return &wire.EndpointID{Mock: &name}
}

func ttyInfo(path string, labels ...string) endpoint.Info {
	return endpoint.Info{ID: endpoint.Tty(path), Labels: endpoint.Labels(labels)}
}

func okResp(r wire.Response) *wire.Response { return &r }

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// printSession narrates a session similar to the one in
// original_source/core/src/cli.rs's print_session: a user controls an
// endpoint, requests control of any endpoint matching labels, gets
// queued then granted, observes an endpoint, receives a message, and
// writes to one it controls.
func printSession() {
	line := func(s string) { fmt.Println(s) }
	req := func(v any) { data, _ := json.Marshal(v); fmt.Printf("> %s\n", data) }
	resp := func(v any) { data, _ := json.Marshal(v); fmt.Printf("< %s\n", data) }

	line("// Example session. User requests are prepended with >, server responses with <")
	line("")
	line("// The user wants exclusive access over an endpoint")
	req(wire.ClientMessage{Control: tty("/dev/ttyACM0")})
	line("// The endpoint was not in use so the user gets access right away")
	resp(wire.Frame{Ok: okResp(wire.ControlGrantedResponse([]endpoint.Info{ttyInfo("/dev/ttyACM0")}))})
	line("")
	line("// The user also wants access to any endpoint matching a few labels")
	labels := []string{"fast", "secure"}
	req(wire.ClientMessage{ControlAny: &labels})
	line("// Two endpoints matched, neither were available, therefore queued")
	resp(wire.Frame{Ok: okResp(wire.ControlQueueResponse([]endpoint.Info{
		ttyInfo("/dev/ttyACM1", "fast", "secure"),
		ttyInfo("/dev/ttyACM2", "fast", "secure", "expensive"),
	}))})
	line("// Some time passes... then one becomes available")
	resp(wire.Frame{Ok: okResp(wire.ControlGrantedResponse([]endpoint.Info{ttyInfo("/dev/ttyACM2", "fast", "secure", "expensive")}))})
	line("")
	line("// The user wants to know about messages too, so they observe an endpoint")
	req(wire.ClientMessage{Observe: tty("/dev/ttyACM0")})
	resp(wire.Frame{Ok: okResp(wire.ObservingResponse(ttyInfo("/dev/ttyACM0")))})
	line("")
	line("// Messages may now appear at any time on that endpoint")
	resp(wire.Frame{Ok: okResp(wire.MessageResponse(ttyInfo("/dev/ttyACM0"), []byte("Hello, world")))})
	line("")
	line("// Since the user controls ttyACM0, they may write to it at any time")
	req(wire.ClientMessage{Write: &wire.WriteText{ID: *tty("/dev/ttyACM0"), Message: "Hi there, endpoint!"}})
	resp(wire.Frame{Ok: okResp(wire.WriteOk())})
	line("")
	line("// The user leaves and the endpoints they controlled become available for others")
}
