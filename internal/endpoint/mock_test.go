package endpoint

import (
	"context"
	"testing"
	"time"
)

func recvWithTimeout(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMockLoopbackSingleLine(t *testing.T) {
	m := NewMock(Mock("u", "m"), nil)
	sub := m.Subscribe()
	defer m.Unsubscribe(sub)

	if err := m.Send(context.Background(), []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	to := recvWithTimeout(t, sub)
	from := recvWithTimeout(t, sub)

	if to.Kind != EventToWire || string(to.Payload) != "hi" {
		t.Fatalf("unexpected ToWire event: %+v", to)
	}
	if from.Kind != EventFromWire || string(from.Payload) != "hi" {
		t.Fatalf("unexpected FromWire event: %+v", from)
	}
}

func TestMockLoopbackSplitsNewlines(t *testing.T) {
	m := NewMock(Mock("u", "m"), nil)
	sub := m.Subscribe()
	defer m.Unsubscribe(sub)

	if err := m.Send(context.Background(), []byte("one\ntwo\nthree")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for _, want := range []string{"one", "two", "three"} {
		to := recvWithTimeout(t, sub)
		from := recvWithTimeout(t, sub)
		if string(to.Payload) != want || string(from.Payload) != want {
			t.Fatalf("got to=%q from=%q, want %q", to.Payload, from.Payload, want)
		}
	}
}

func TestMockLateSubscriberMissesPastMessages(t *testing.T) {
	m := NewMock(Mock("u", "m"), nil)

	if err := m.Send(context.Background(), []byte("before")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	sub := m.Subscribe()
	defer m.Unsubscribe(sub)

	select {
	case e := <-sub:
		t.Fatalf("late subscriber should not see past events, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMockSharesTokenAcrossGroup(t *testing.T) {
	a := NewMock(Mock("u", "a"), nil)
	b := NewMock(Mock("u", "b"), nil, WithMockToken(a.Token()))

	if a.Token() != b.Token() {
		t.Fatal("expected group members to share the identical token")
	}
}
