package broadcast

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New[string]()
	sub := b.Subscribe(4)

	delivered, dropped := b.Publish("hello")
	if delivered != 1 || dropped != 0 {
		t.Fatalf("delivered=%d dropped=%d, want 1/0", delivered, dropped)
	}

	got := <-sub
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestLateSubscriberMissesPastEvents(t *testing.T) {
	b := New[int]()
	b.Publish(1)

	sub := b.Subscribe(4)
	b.Publish(2)

	got := <-sub
	if got != 2 {
		t.Fatalf("got %d, want 2 (late subscriber should not see past events)", got)
	}
}

func TestSlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe(1)

	b.Publish(1)
	delivered, dropped := b.Publish(2)
	if delivered != 0 || dropped != 1 {
		t.Fatalf("delivered=%d dropped=%d, want 0/1 (full buffer)", delivered, dropped)
	}

	if got := <-sub; got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe(1)
	b.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}

	// Idempotent.
	b.Unsubscribe(sub)

	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() = %d, want 0", n)
	}
}
