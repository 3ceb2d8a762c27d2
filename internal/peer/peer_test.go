package peer

import (
	"context"
	"testing"
	"time"

	"github.com/nugget/serial-keel/internal/config"
	"github.com/nugget/serial-keel/internal/controlcenter"
	"github.com/nugget/serial-keel/internal/wire"
)

// newTestCC starts a control center with mock sharing enabled, so two
// distinct wire clients naming the same mock reach the same endpoint —
// exactly what spec.md §8's S1/S2 scenarios assume ("Observer C2 first
// Observe(Mock("m1"))" after a different client controlled it).
func newTestCC(t *testing.T) *controlcenter.Handle {
	t.Helper()
	h, err := controlcenter.New(&config.Config{AutoOpenSerialPorts: false, ShareMocks: true}, nil)
	if err != nil {
		t.Fatalf("controlcenter.New: %v", err)
	}
	return h
}

func str(s string) *string { return &s }

func waitFrame(t *testing.T, ch <-chan wire.Frame) wire.Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame on Outbound")
	}
	return wire.Frame{}
}

// S1 — happy control: C1 controls a mock, writes to it, and the observer
// C2 sees the write as an async Message push.
func TestHappyControlAndObserve(t *testing.T) {
	cc := newTestCC(t)
	ctx := context.Background()

	c1 := New("c1", cc, nil)
	defer c1.Close()

	reply := c1.Handle(ctx, wire.ClientMessage{Control: &wire.EndpointID{Mock: str("m1")}})
	if reply == nil || reply.Err != nil {
		t.Fatalf("Control(m1) = %+v, want a granted Sync response", reply)
	}
	if reply.Ok == nil || reply.Ok.Sync == nil || len(reply.Ok.Sync.ControlGranted) != 1 {
		t.Fatalf("expected Sync.ControlGranted with one endpoint, got %+v", reply.Ok)
	}

	c2 := New("c2", cc, nil)
	defer c2.Close()

	obsReply := c2.Handle(ctx, wire.ClientMessage{Observe: &wire.EndpointID{Mock: str("m1")}})
	if obsReply == nil || obsReply.Err != nil {
		t.Fatalf("Observe(m1) = %+v, want a Sync.Observing response", obsReply)
	}

	writeReply := c1.Handle(ctx, wire.ClientMessage{Write: &wire.WriteText{
		ID:      wire.EndpointID{Mock: str("m1")},
		Message: "hi",
	}})
	if writeReply == nil || writeReply.Err != nil || writeReply.Ok.Sync.WriteOk == nil {
		t.Fatalf("Write = %+v, want Sync.WriteOk", writeReply)
	}

	frame := waitFrame(t, c2.Outbound)
	if frame.Err != nil || frame.Ok == nil || frame.Ok.Async == nil || frame.Ok.Async.Message == nil {
		t.Fatalf("expected an async Message push for c2, got %+v", frame)
	}
	if string(frame.Ok.Async.Message.Message) != "hi" {
		t.Fatalf("pushed message = %q, want %q", frame.Ok.Async.Message.Message, "hi")
	}
}

// S2 — queue then grant: a second controller queues, then is granted
// asynchronously once the first disconnects.
func TestQueueThenGrantAcrossPeers(t *testing.T) {
	cc := newTestCC(t)
	ctx := context.Background()

	c1 := New("c1", cc, nil)
	c2 := New("c2", cc, nil)
	defer c2.Close()

	reply1 := c1.Handle(ctx, wire.ClientMessage{Control: &wire.EndpointID{Mock: str("shared")}})
	if reply1 == nil || reply1.Ok == nil || len(reply1.Ok.Sync.ControlGranted) == 0 {
		t.Fatalf("c1's Control(shared) = %+v, want granted", reply1)
	}

	reply2 := c2.Handle(ctx, wire.ClientMessage{Control: &wire.EndpointID{Mock: str("shared")}})
	if reply2 == nil || reply2.Ok == nil || reply2.Ok.Sync.ControlQueue == nil {
		t.Fatalf("c2's Control(shared) = %+v, want ControlQueue", reply2)
	}

	c1.Close() // releases c1's token and informs UserLeft

	frame := waitFrame(t, c2.Outbound)
	if frame.Err != nil || frame.Ok == nil || frame.Ok.Sync == nil || len(frame.Ok.Sync.ControlGranted) == 0 {
		t.Fatalf("expected c2 to receive an async ControlGranted push, got %+v", frame)
	}
}

// S5 — write without permit: observing (not controlling) an endpoint and
// then writing to it must fail with NoPermit.
func TestWriteWithoutPermitFails(t *testing.T) {
	cc := newTestCC(t)
	ctx := context.Background()

	c1 := New("c1", cc, nil)
	defer c1.Close()

	obsReply := c1.Handle(ctx, wire.ClientMessage{Observe: &wire.EndpointID{Mock: str("m1")}})
	if obsReply == nil || obsReply.Err != nil {
		t.Fatalf("Observe(m1) = %+v, want success", obsReply)
	}

	writeReply := c1.Handle(ctx, wire.ClientMessage{Write: &wire.WriteText{
		ID:      wire.EndpointID{Mock: str("m1")},
		Message: "x",
	}})
	if writeReply == nil || writeReply.Err == nil {
		t.Fatalf("Write without control = %+v, want an error", writeReply)
	}
	if writeReply.Err.Kind != "NoPermit" {
		t.Fatalf("error kind = %q, want NoPermit", writeReply.Err.Kind)
	}
}

// S6 — event stream ordering: a subscriber to the event bus sees a second
// client's connect/observe/control/disconnect in the documented order
// (spec.md §4.4.2 / §9's Open Question decision).
func TestEventStreamOrdering(t *testing.T) {
	cc := newTestCC(t)
	ctx := context.Background()

	obs := New("observer", cc, nil)
	defer obs.Close()

	evReply := obs.Handle(ctx, wire.ClientMessage{ObserveEvents: &struct{}{}})
	if evReply == nil || evReply.Err != nil || evReply.Ok.Sync.ObservingEvents == nil {
		t.Fatalf("ObserveEvents = %+v, want Sync.ObservingEvents", evReply)
	}

	c2 := New("c2", cc, nil)

	obsReply := c2.Handle(ctx, wire.ClientMessage{Observe: &wire.EndpointID{Mock: str("m1")}})
	if obsReply == nil || obsReply.Err != nil {
		t.Fatalf("c2 Observe(m1) = %+v, want success", obsReply)
	}

	ctrlReply := c2.Handle(ctx, wire.ClientMessage{Control: &wire.EndpointID{Mock: str("m2")}})
	if ctrlReply == nil || ctrlReply.Ok == nil || len(ctrlReply.Ok.Sync.ControlGranted) == 0 {
		t.Fatalf("c2 Control(m2) = %+v, want granted", ctrlReply)
	}

	c2.Close()

	wantKinds := []string{
		"connected",
		"observing",
		"in_control_of",
		"no_longer_observing",
		"no_longer_in_control_of",
		"disconnected",
	}
	for _, want := range wantKinds {
		frame := waitFrame(t, obs.Outbound)
		if frame.Err != nil || frame.Ok == nil || frame.Ok.Async == nil || frame.Ok.Async.Event == nil {
			t.Fatalf("expected an async Event push, got %+v", frame)
		}
		if frame.Ok.Async.Event.Kind != want {
			t.Fatalf("event kind = %q, want %q", frame.Ok.Async.Event.Kind, want)
		}
	}
}
