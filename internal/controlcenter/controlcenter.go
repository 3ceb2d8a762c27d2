// Package controlcenter implements the single-writer mediator described in
// spec §4.4: it owns the endpoint registry, per-user state, and the event
// log, and enforces every exclusive-control and label-matching invariant
// by processing one message at a time off an internal queue.
package controlcenter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nugget/serial-keel/internal/config"
	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/events"
	"github.com/nugget/serial-keel/internal/registry"
	"github.com/nugget/serial-keel/internal/user"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// queueDepth approximates the "unbounded queue" of spec §5: generous
// enough that a Peer's request is never rejected for being momentarily
// ahead of the single writer, without an actual unbounded allocator.
const queueDepth = 4096

// controlCenter holds everything the single-writer loop mutates. Nothing
// outside the run loop goroutine touches these fields.
type controlCenter struct {
	registry  *registry.Registry
	users     map[string]*user.State
	eventsLog *events.Log
	log       *slog.Logger
}

type message struct {
	user   string
	action Action
	reply  chan replyEnvelope
}

type replyEnvelope struct {
	resp Response
	err  error
}

type informMessage struct {
	user   string
	inform Inform
}

type envelope struct {
	req *message
	inf *informMessage
}

// Handle is the public, concurrency-safe entry point to a running control
// center. Copies share the same underlying loop.
type Handle struct {
	msgs     chan envelope
	registry *registry.Registry
}

// New starts a control center's run loop and returns a Handle to it. cfg
// is validated and wired into the registry before the loop starts (spec
// §4.5): plain endpoints are created, groups are allocated one shared
// token each, and if AutoOpenSerialPorts is set, any host serial ports not
// already configured are opened with default settings.
func New(cfg *config.Config, log *slog.Logger) (*Handle, error) {
	return newWithPortLister(cfg, log, nil)
}

// newWithPortLister is New with an injectable serial port enumerator, for
// tests that need to simulate auto-opened ports without real hardware.
func newWithPortLister(cfg *config.Config, log *slog.Logger, listPorts SerialPortLister) (*Handle, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	cc := &controlCenter{
		registry:  registry.New(cfg.ShareMocks, log),
		users:     make(map[string]*user.State),
		eventsLog: events.NewLog(events.DefaultCapacity, log),
		log:       log,
	}

	if err := cc.wireConfig(cfg, listPorts); err != nil {
		return nil, err
	}

	h := &Handle{msgs: make(chan envelope, queueDepth), registry: cc.registry}
	go cc.run(h.msgs)
	return h, nil
}

// LookupEndpoint resolves id to its live Endpoint for direct Send/
// Subscribe access. This bypasses the single-writer queue deliberately:
// Registry's reads are already safe for concurrent callers (spec §5 —
// "Exclusivity tokens: mutated by any task via their fair gate" applies
// equally to the read-mostly endpoint map), and routing every Peer write
// through the control center's mailbox would make wire throughput depend
// on mediator queue depth for no correctness benefit, since Write never
// mutates registry/user-state/event-log itself (it only emits a
// MessageSent inform once the payload is accepted — see
// controlcenter.MessageSentInform).
func (h *Handle) LookupEndpoint(id endpoint.ID) (endpoint.Endpoint, error) {
	e, err := h.registry.Get(id)
	if err != nil {
		return nil, &NoSuchEndpointError{ID: id}
	}
	return e, nil
}

// Do sends a request and blocks for its reply, or until ctx is done.
func (h *Handle) Do(ctx context.Context, forUser string, action Action) (Response, error) {
	reply := make(chan replyEnvelope, 1)
	select {
	case h.msgs <- envelope{req: &message{user: forUser, action: action, reply: reply}}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Inform sends a one-way notice. It does not block on processing.
func (h *Handle) Inform(forUser string, inform Inform) {
	h.msgs <- envelope{inf: &informMessage{user: forUser, inform: inform}}
}

func (cc *controlCenter) run(msgs <-chan envelope) {
	for env := range msgs {
		cc.process(env)
	}
}

// process handles one message. A panic while processing a single request
// or inform is logged and contained here so it cannot poison the rest of
// the queue (spec §4.6).
func (cc *controlCenter) process(env envelope) {
	defer func() {
		if r := recover(); r != nil {
			cc.log.Error("control center recovered from panic processing a message", "panic", r)
		}
	}()

	if env.req != nil {
		cc.processRequest(env.req)
		return
	}
	cc.processInform(env.inf)
}

func (cc *controlCenter) processRequest(req *message) {
	var resp Response
	var err error

	switch a := req.action.(type) {
	case ObserveAction:
		resp, err = cc.observe(req.user, a.ID)
	case ControlAction:
		resp, err = cc.control(req.user, a.ID)
	case ControlAnyAction:
		resp, err = cc.controlAny(req.user, a.Labels)
	case SubscribeToEventsAction:
		resp, err = cc.subscribeToEvents(req.user)
	default:
		err = &InternalIssueError{Msg: fmt.Sprintf("unknown action type %T", a)}
	}

	// Buffered with capacity 1: this send never blocks the single writer,
	// matching spec §4.6's "dropped reply channels are silently
	// discarded" even though here we always succeed in handing it off.
	req.reply <- replyEnvelope{resp: resp, err: err}
}

func (cc *controlCenter) processInform(inf *informMessage) {
	switch i := inf.inform.(type) {
	case UserArrivedInform:
		cc.userArrived(inf.user)
	case UserLeftInform:
		cc.userLeft(inf.user)
	case NowControllingInform:
		cc.nowControlling(inf.user, i.Request, i.GotControl)
	case MessageReceivedInform:
		cc.messageReceived(inf.user, i.Info, i.Payload)
	case MessageSentInform:
		cc.messageSent(inf.user, i.ID, i.Payload)
	default:
		cc.log.Warn("unknown inform type", "type", fmt.Sprintf("%T", i))
	}
}

// userState fetches a live user's bookkeeping, or nil if the control
// center never saw (or already forgot) that user. Every call site that
// can legitimately race a disconnect (e.g. a queue waiter resolving after
// UserLeft already ran) must handle nil.
func (cc *controlCenter) userState(forUser string) *user.State {
	return cc.users[forUser]
}

func (cc *controlCenter) pushEvent(e events.Event) {
	cc.eventsLog.Push(e)
}

// runControlWaiter blocks until tok's permit is free or ctx is cancelled.
// On success it tries a non-blocking send to out; if out already holds a
// value (a sibling waiter in a composite ControlAny race already won), the
// permit is released immediately rather than held by a waiter nobody will
// ever collect. out is buffered, so the send succeeds even when no
// receiver is waiting; a waiter whose user has left is stopped through ctx
// instead (user.State.CancelAllQueues on UserLeft). onWin (may be nil) runs once
// after a successful send, so a composite caller can cancel its siblings'
// still-pending Acquire calls.
func runControlWaiter(tok *xtoken.Token, ctx context.Context, out chan<- *AvailableController, bundle []endpoint.Info, onWin func()) {
	if err := tok.Acquire(ctx); err != nil {
		return
	}
	select {
	case out <- &AvailableController{Bundle: bundle, Token: tok}:
		if onWin != nil {
			onWin()
		}
	default:
		tok.Release()
	}
}

// newRequestID is a small indirection so queue-cancel bookkeeping reads
// naturally at call sites (user.State keys cancels by request id).
func newRequestID() uuid.UUID { return uuid.New() }
