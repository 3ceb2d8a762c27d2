package events

import (
	"testing"
	"time"
)

func TestPushTruncatesToCapacity(t *testing.T) {
	l := NewLog(3, nil)
	for i := 0; i < 5; i++ {
		l.Push(Connected("u"))
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
}

func TestPushNewestFirst(t *testing.T) {
	l := NewLog(10, nil)
	l.Push(Connected("first"))
	l.Push(Connected("second"))

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event.User != "second" {
		t.Fatalf("entries[0].User = %q, want %q (newest first)", entries[0].Event.User, "second")
	}
}

func TestSubscribeOnlySeesFutureEvents(t *testing.T) {
	l := NewLog(10, nil)
	l.Push(Connected("before"))

	sub := l.Subscribe()
	defer l.Unsubscribe(sub)

	l.Push(Connected("after"))

	select {
	case te := <-sub:
		if te.Event.User != "after" {
			t.Fatalf("got %q, want %q", te.Event.User, "after")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
