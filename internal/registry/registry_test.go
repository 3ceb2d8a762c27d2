package registry

import (
	"errors"
	"testing"

	"github.com/nugget/serial-keel/internal/endpoint"
)

func newMock(id endpoint.ID, labels endpoint.Labels) endpoint.Endpoint {
	return endpoint.NewMock(id, nil, endpoint.WithMockLabels(labels))
}

func TestInsertAndGet(t *testing.T) {
	r := New(false, nil)
	id := endpoint.Mock("u1", "m1")
	r.Insert(newMock(id, nil))

	got, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != id {
		t.Fatalf("got id %v, want %v", got.ID(), id)
	}
}

func TestGetUnknownReturnsNoSuchEndpoint(t *testing.T) {
	r := New(false, nil)
	_, err := r.Get(endpoint.Tty("/dev/ttyDoesNotExist"))
	var nse *NoSuchEndpointError
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.As(err, &nse) {
		t.Fatalf("expected *NoSuchEndpointError, got %T", err)
	}
}

func TestInsertDuplicatePanics(t *testing.T) {
	r := New(false, nil)
	id := endpoint.Mock("u1", "m1")
	r.Insert(newMock(id, nil))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate insert")
		}
	}()
	r.Insert(newMock(id, nil))
}

func TestGetOrCreateMockIsIdempotent(t *testing.T) {
	r := New(false, nil)
	id := endpoint.Mock("u1", "m1")

	calls := 0
	factory := func(id endpoint.ID) endpoint.Endpoint {
		calls++
		return endpoint.NewMock(id, nil)
	}

	first := r.GetOrCreateMock(id, factory)
	second := r.GetOrCreateMock(id, factory)

	if first != second {
		t.Fatal("expected the same endpoint instance on repeated calls")
	}
	if calls != 1 {
		t.Fatalf("factory called %d times, want 1", calls)
	}
}

func TestMockSharingPolicy(t *testing.T) {
	perUser := New(false, nil)
	shared := New(true, nil)

	idA := endpoint.Mock("alice", "shared-name")
	idB := endpoint.Mock("bob", "shared-name")

	factory := func(id endpoint.ID) endpoint.Endpoint { return endpoint.NewMock(id, nil) }

	perUser.GetOrCreateMock(idA, factory)
	perUser.GetOrCreateMock(idB, factory)
	if _, err := perUser.Get(idA); err != nil {
		t.Fatalf("per-user: Get(idA): %v", err)
	}
	if _, err := perUser.Get(idB); err != nil {
		t.Fatalf("per-user: Get(idB): %v", err)
	}

	a := shared.GetOrCreateMock(idA, factory)
	b := shared.GetOrCreateMock(idB, factory)
	if a != b {
		t.Fatal("shared mode: expected idA and idB to resolve to the same mock")
	}
}

func TestMatchLabelsDedupesByToken(t *testing.T) {
	r := New(false, nil)

	m1 := endpoint.NewMock(endpoint.Mock("u", "m1"), nil, endpoint.WithMockLabels(endpoint.Labels{"fast"}))
	m2 := endpoint.NewMock(endpoint.Mock("u", "m2"), nil, endpoint.WithMockLabels(endpoint.Labels{"fast"}), endpoint.WithMockToken(m1.Token()))
	r.Insert(m1)
	r.Insert(m2)

	matches := r.MatchLabels(endpoint.Labels{"fast"})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (deduped by shared token)", len(matches))
	}
}

func TestMatchLabelsIsSuperset(t *testing.T) {
	r := New(false, nil)
	m1 := endpoint.NewMock(endpoint.Mock("u", "m1"), nil, endpoint.WithMockLabels(endpoint.Labels{"fast", "secure"}))
	m2 := endpoint.NewMock(endpoint.Mock("u", "m2"), nil, endpoint.WithMockLabels(endpoint.Labels{"fast"}))
	r.Insert(m1)
	r.Insert(m2)

	matches := r.MatchLabels(endpoint.Labels{"fast", "secure"})
	if len(matches) != 1 || matches[0].ID != m1.ID() {
		t.Fatalf("expected only m1 to match, got %+v", matches)
	}

	matches = r.MatchLabels(endpoint.Labels{"missing"})
	if len(matches) != 0 {
		t.Fatalf("expected no matches for unknown label, got %+v", matches)
	}
}

func TestUnlabelledAndRemove(t *testing.T) {
	r := New(false, nil)
	labelled := endpoint.NewMock(endpoint.Mock("u", "labelled"), nil, endpoint.WithMockLabels(endpoint.Labels{"x"}))
	unlabelled := endpoint.NewMock(endpoint.Mock("u", "bare"), nil)
	r.Insert(labelled)
	r.Insert(unlabelled)

	got := r.Unlabelled()
	if len(got) != 1 || got[0].ID != unlabelled.ID() {
		t.Fatalf("Unlabelled() = %+v, want only %v", got, unlabelled.ID())
	}

	r.Remove(unlabelled.ID())
	if _, err := r.Get(unlabelled.ID()); err == nil {
		t.Fatal("expected removed endpoint to be gone")
	}
}
