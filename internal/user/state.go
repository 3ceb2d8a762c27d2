// Package user tracks per-connected-user bookkeeping: which endpoints a
// user observes, is queued for, or controls, and whether it subscribes to
// the event bus.
package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// State is one user's live bookkeeping. Construct it with New; the zero
// value's maps are nil.
type State struct {
	ObservingEndpoints map[endpoint.ID]endpoint.Info
	ObservingEvents    bool
	InQueueOf          map[endpoint.ID]endpoint.Info
	InControlOf        map[uuid.UUID]struct{}

	// queueCancels aborts in-flight queue waiters for a given request when
	// the user leaves before the queue resolves. Keyed by an opaque
	// request id so a single ControlAny request's composite waiter is
	// cancelled as one unit.
	queueCancels map[uuid.UUID]context.CancelFunc
}

// New creates an empty State.
func New() *State {
	return &State{
		ObservingEndpoints: make(map[endpoint.ID]endpoint.Info),
		InQueueOf:          make(map[endpoint.ID]endpoint.Info),
		InControlOf:        make(map[uuid.UUID]struct{}),
		queueCancels:       make(map[uuid.UUID]context.CancelFunc),
	}
}

// AddQueueCancel registers the cancel function for an in-flight queue
// waiter under requestID.
func (s *State) AddQueueCancel(requestID uuid.UUID, cancel context.CancelFunc) {
	s.queueCancels[requestID] = cancel
}

// RemoveQueueCancel forgets a request's cancel function (it resolved).
func (s *State) RemoveQueueCancel(requestID uuid.UUID) {
	delete(s.queueCancels, requestID)
}

// CancelAllQueues aborts every in-flight queue waiter this user has
// outstanding (called on disconnect).
func (s *State) CancelAllQueues() {
	for id, cancel := range s.queueCancels {
		cancel()
		delete(s.queueCancels, id)
	}
}

// DrainObserving removes and returns every observed endpoint.
func (s *State) DrainObserving() []endpoint.Info {
	out := make([]endpoint.Info, 0, len(s.ObservingEndpoints))
	for _, info := range s.ObservingEndpoints {
		out = append(out, info)
	}
	s.ObservingEndpoints = make(map[endpoint.ID]endpoint.Info)
	return out
}

// DrainQueue removes and returns every queued-for endpoint.
func (s *State) DrainQueue() []endpoint.Info {
	out := make([]endpoint.Info, 0, len(s.InQueueOf))
	for _, info := range s.InQueueOf {
		out = append(out, info)
	}
	s.InQueueOf = make(map[endpoint.ID]endpoint.Info)
	return out
}

// DrainControl removes and returns every token id this user holds.
func (s *State) DrainControl() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.InControlOf))
	for id := range s.InControlOf {
		out = append(out, id)
	}
	s.InControlOf = make(map[uuid.UUID]struct{})
	return out
}
